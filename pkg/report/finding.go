package report

import (
	"encoding/json"
	"strings"
)

// FlagFalsePositive marks a finding an analyzer believes to be a false positive.
const FlagFalsePositive = "flagged-as-likely-false-positive"

// FindingKey identifies a finding for deduplication. A key is either a
// (location fingerprint, identifier fingerprint) pair or a bare UUID.
type FindingKey struct {
	LocationFingerprint   string
	IdentifierFingerprint string
	UUID                  string
}

// Valid reports whether the key can match anything. Pair keys need both
// sides set.
func (k FindingKey) Valid() bool {
	if k.UUID != "" {
		return true
	}
	return k.LocationFingerprint != "" && k.IdentifierFingerprint != ""
}

type Link struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
}

type Flag struct {
	Type        string `json:"type"`
	Origin      string `json:"origin,omitempty"`
	Description string `json:"description,omitempty"`
}

func (f Flag) FalsePositive() bool {
	return f.Type == FlagFalsePositive
}

type Remediation struct {
	Summary string `json:"summary"`
	Diff    string `json:"diff,omitempty"`
}

// Finding is one vulnerability reported by an analyzer.
type Finding struct {
	UUID           string
	OverriddenUUID string
	CompareKey     string

	Name        string
	Message     string
	Description string
	Solution    string

	Severity   Severity
	Confidence Confidence
	ReportType ReportType

	Scanner     *Scanner
	Identifiers []Identifier
	Links       []Link
	Location    *Location
	OldLocation *Location
	Signatures  []Signature
	Flags       []Flag

	Remediations         []Remediation
	Evidence             json.RawMessage
	Details              json.RawMessage
	Assets               json.RawMessage
	RawSourceCodeExtract string

	MetadataVersion string
	OriginalData    json.RawMessage
	ProjectID       int64

	// SignaturesEnabled switches location identity from the plain location
	// fingerprint to the highest priority tracking signature.
	SignaturesEnabled bool
}

// PrimaryIdentifier returns the first identifier, or nil.
func (f *Finding) PrimaryIdentifier() *Identifier {
	if len(f.Identifiers) == 0 {
		return nil
	}
	return &f.Identifiers[0]
}

func (f *Finding) primaryIdentifierFingerprint() string {
	if id := f.PrimaryIdentifier(); id != nil {
		return id.Fingerprint()
	}
	return ""
}

func (f *Finding) locationFingerprints() []string {
	var out []string
	if f.SignaturesEnabled {
		for _, s := range byPriorityDesc(f.Signatures) {
			out = append(out, s.SHA())
		}
	}
	if f.Location != nil {
		out = append(out, f.Location.Fingerprint())
	}
	return out
}

// Keys returns every key identifying the finding. The UUID is always the last
// key.
func (f *Finding) Keys() []FindingKey {
	locations := f.locationFingerprints()
	keys := make([]FindingKey, 0, len(f.Identifiers)*len(locations)+1)
	for _, id := range f.Identifiers {
		if id.IsTypeIdentifier() {
			continue
		}
		idFP := id.Fingerprint()
		for _, loc := range locations {
			keys = append(keys, FindingKey{LocationFingerprint: loc, IdentifierFingerprint: idFP})
		}
	}
	if f.UUID != "" {
		keys = append(keys, FindingKey{UUID: f.UUID})
	}
	return keys
}

// SignaturesByPriority returns the valid tracking signatures, highest
// priority first.
func (f *Finding) SignaturesByPriority() []Signature {
	return byPriorityDesc(f.Signatures)
}

// LocationFingerprint is the location identity used for equality: the highest
// priority signature when signatures are enabled, the location fingerprint
// otherwise.
func (f *Finding) LocationFingerprint() string {
	if f.SignaturesEnabled {
		if sigs := byPriorityDesc(f.Signatures); len(sigs) > 0 {
			return sigs[0].SHA()
		}
	}
	if f.Location == nil {
		return ""
	}
	return f.Location.Fingerprint()
}

// Equal reports whether both findings describe the same vulnerability.
func (f *Finding) Equal(other *Finding) bool {
	if other == nil {
		return false
	}
	return f.ReportType == other.ReportType &&
		f.primaryIdentifierFingerprint() == other.primaryIdentifierFingerprint() &&
		f.LocationFingerprint() == other.LocationFingerprint()
}

// Valid reports whether the finding carries enough identity to be stored.
func (f *Finding) Valid() bool {
	return f.Scanner != nil && len(f.Identifiers) > 0 && f.Location != nil && f.UUID != ""
}

// Compare orders findings by severity descending, then compare key.
func (f *Finding) Compare(other *Finding) int {
	if f.Severity != other.Severity {
		if f.Severity > other.Severity {
			return -1
		}
		return 1
	}
	return strings.Compare(f.CompareKey, other.CompareKey)
}

// ScannerOrderTo orders findings by their scanner priority. Findings without
// a scanner come last.
func (f *Finding) ScannerOrderTo(other *Finding) int {
	switch {
	case f.Scanner == nil && other.Scanner == nil:
		return 0
	case f.Scanner == nil:
		return 1
	case other.Scanner == nil:
		return -1
	}
	return f.Scanner.Compare(*other.Scanner)
}

// Unsafe reports whether the finding matches one of the severity levels and
// report types.
func (f *Finding) Unsafe(levels []Severity, types []ReportType) bool {
	return containsSeverity(levels, f.Severity) && containsReportType(types, f.ReportType)
}

func (f *Finding) FalsePositive() bool {
	for _, flag := range f.Flags {
		if flag.FalsePositive() {
			return true
		}
	}
	return false
}

// ProjectFingerprint is the SHA1 hex digest of the compare key.
func (f *Finding) ProjectFingerprint() string {
	return sha1Hex(f.CompareKey)
}

// UpdateLocation replaces the location, remembering the previous one.
func (f *Finding) UpdateLocation(loc *Location) {
	f.OldLocation = f.Location
	f.Location = loc
}

func containsSeverity(levels []Severity, s Severity) bool {
	for _, l := range levels {
		if l == s {
			return true
		}
	}
	return false
}

func containsReportType(types []ReportType, t ReportType) bool {
	for _, rt := range types {
		if rt == t {
			return true
		}
	}
	return false
}
