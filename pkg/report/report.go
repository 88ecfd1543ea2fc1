package report

import "time"

// Error is a problem found while reading a report. Errors make the report
// unusable; warnings are informational.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Report is the parsed content of one security report artifact.
type Report struct {
	Type       ReportType
	PipelineID int64
	CreatedAt  time.Time
	Version    string

	PrimaryScanner   *Scanner
	Scanners         map[string]Scanner
	Identifiers      map[string]Identifier
	Findings         []*Finding
	ScannedResources []string

	Errors   []Error
	Warnings []Error

	// Source is the document the report was parsed from. Remediation diffs
	// are located in it by byte offset.
	Source []byte
}

// New returns an empty report of the given type.
func New(t ReportType, pipelineID int64, createdAt time.Time) *Report {
	return &Report{
		Type:        t,
		PipelineID:  pipelineID,
		CreatedAt:   createdAt,
		Scanners:    make(map[string]Scanner),
		Identifiers: make(map[string]Identifier),
	}
}

func (r *Report) AddFinding(f *Finding) {
	r.Findings = append(r.Findings, f)
}

// AddScanner registers a scanner once per key and returns the stored value.
func (r *Report) AddScanner(s Scanner) Scanner {
	if existing, ok := r.Scanners[s.Key()]; ok {
		return existing
	}
	r.Scanners[s.Key()] = s
	return s
}

// AddIdentifier registers an identifier once per fingerprint.
func (r *Report) AddIdentifier(id Identifier) Identifier {
	if existing, ok := r.Identifiers[id.Key()]; ok {
		return existing
	}
	r.Identifiers[id.Key()] = id
	return id
}

func (r *Report) AddError(typ, message string) {
	r.Errors = append(r.Errors, Error{Type: typ, Message: message})
}

func (r *Report) AddWarning(typ, message string) {
	r.Warnings = append(r.Warnings, Error{Type: typ, Message: message})
}

func (r *Report) Errored() bool {
	return len(r.Errors) > 0
}

// AddScannedResources appends resources that are not already present.
func (r *Report) AddScannedResources(resources []string) {
	seen := make(map[string]struct{}, len(r.ScannedResources))
	for _, res := range r.ScannedResources {
		seen[res] = struct{}{}
	}
	for _, res := range resources {
		if _, ok := seen[res]; ok {
			continue
		}
		seen[res] = struct{}{}
		r.ScannedResources = append(r.ScannedResources, res)
	}
}

// PrimaryScannerOrderTo orders reports by their primary scanner. Reports
// without one come last.
func (r *Report) PrimaryScannerOrderTo(other *Report) int {
	switch {
	case r.PrimaryScanner == nil && other.PrimaryScanner == nil:
		return 0
	case r.PrimaryScanner == nil:
		return 1
	case other.PrimaryScanner == nil:
		return -1
	}
	return r.PrimaryScanner.Compare(*other.PrimaryScanner)
}

// HasFindingsOfType reports whether any finding has the given report type.
func (r *Report) HasFindingsOfType(t ReportType) bool {
	for _, f := range r.Findings {
		if f.ReportType == t {
			return true
		}
	}
	return false
}
