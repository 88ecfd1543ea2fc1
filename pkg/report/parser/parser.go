package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doodlesbykumbi/scanstore/pkg/report"
)

// Report error and warning types.
const (
	ErrorTypeParsing = "ParsingError"
	ErrorTypeSchema  = "SchemaError"
	ErrorTypeScan    = "ScanError"
	WarningTypeScan  = "ScanWarning"
	WarningTypeDepr  = "Deprecation"
)

const supportedMajorVersion = "15"

var deprecatedMajorVersions = map[string]bool{"14": true}

// Options carries the context a report is parsed in.
type Options struct {
	ProjectID  int64
	PipelineID int64
	CreatedAt  time.Time

	// Namespace for finding UUIDs. Zero means report.DefaultNamespace.
	Namespace uuid.UUID

	SignaturesEnabled bool
}

// Parse reads a report document. The returned error is only set when r
// cannot be read.
func Parse(r io.Reader, reportType report.ReportType, opts Options) (*report.Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return ParseBytes(data, reportType, opts), nil
}

// ParseBytes parses a report document held in memory.
func ParseBytes(data []byte, reportType report.ReportType, opts Options) *report.Report {
	if opts.Namespace == uuid.Nil {
		opts.Namespace = report.DefaultNamespace
	}
	if opts.CreatedAt.IsZero() {
		opts.CreatedAt = time.Now().UTC()
	}

	rep := report.New(reportType, opts.PipelineID, opts.CreatedAt)
	rep.Source = data

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		rep.AddError(ErrorTypeParsing, "JSON parsing failed: "+err.Error())
		return rep
	}

	rep.Version = doc.Version
	checkVersion(rep, doc.Version)

	if doc.Vulnerabilities == nil {
		rep.AddError(ErrorTypeSchema, "root is missing required property: vulnerabilities")
		return rep
	}

	if doc.Scan != nil {
		collectScan(rep, doc.Scan)
	}

	for i, raw := range *doc.Vulnerabilities {
		var v vulnerability
		if err := json.Unmarshal(raw, &v); err != nil {
			rep.AddError(ErrorTypeParsing, fmt.Sprintf("vulnerability %d: %v", i, err))
			continue
		}
		f := buildFinding(rep, &doc, &v, raw, opts)
		rep.AddFinding(f)
	}

	if rep.PrimaryScanner == nil {
		for _, f := range rep.Findings {
			if f.Scanner != nil {
				s := *f.Scanner
				rep.PrimaryScanner = &s
				break
			}
		}
	}

	return rep
}

func checkVersion(rep *report.Report, version string) {
	if version == "" {
		rep.AddError(ErrorTypeSchema, "root is missing required property: version")
		return
	}
	major := strings.SplitN(version, ".", 2)[0]
	switch {
	case major == supportedMajorVersion:
	case deprecatedMajorVersions[major]:
		rep.AddWarning(WarningTypeDepr, fmt.Sprintf("Version %s for report type %s has been deprecated", version, rep.Type))
	default:
		rep.AddWarning(ErrorTypeSchema, fmt.Sprintf("Version %s for report type %s is unsupported, supported version is %s.x", version, rep.Type, supportedMajorVersion))
	}
}

func collectScan(rep *report.Report, scan *scanSection) {
	if scan.Scanner != nil && scan.Scanner.ID != "" {
		s := rep.AddScanner(scan.Scanner.toScanner())
		rep.PrimaryScanner = &s
	}
	for _, m := range scan.Messages {
		switch strings.ToLower(m.Level) {
		case "fatal", "error":
			rep.AddError(ErrorTypeScan, m.Value)
		case "warn", "warning":
			rep.AddWarning(WarningTypeScan, m.Value)
		}
	}
	resources := make([]string, 0, len(scan.ScannedResources))
	for _, r := range scan.ScannedResources {
		resources = append(resources, strings.TrimSpace(r.Method+" "+r.URL))
	}
	rep.AddScannedResources(resources)
}

func buildFinding(rep *report.Report, doc *document, v *vulnerability, raw json.RawMessage, opts Options) *report.Finding {
	f := &report.Finding{
		Name:                 v.Name,
		Message:              v.Message,
		Description:          v.Description,
		Solution:             v.Solution,
		ReportType:           rep.Type,
		Links:                v.Links,
		Flags:                v.Flags,
		Evidence:             v.Evidence,
		Details:              v.Details,
		Assets:               v.Assets,
		RawSourceCodeExtract: v.RawSourceCodeExtract,
		MetadataVersion:      doc.Version,
		OriginalData:         raw,
		ProjectID:            opts.ProjectID,
		SignaturesEnabled:    opts.SignaturesEnabled,
	}

	if f.Name == "" {
		f.Name = v.Message
	}

	sev, err := report.ParseSeverity(v.Severity)
	if err != nil {
		sev = report.SeverityUnknown
	}
	f.Severity = sev

	conf, err := report.ParseConfidence(v.Confidence)
	if err != nil {
		conf = report.ConfidenceUnknown
	}
	f.Confidence = conf

	f.Scanner = findingScanner(rep, doc, v)

	for _, id := range v.Identifiers {
		f.Identifiers = append(f.Identifiers, rep.AddIdentifier(report.Identifier{
			ExternalType: id.Type,
			ExternalID:   id.Value,
			Name:         id.Name,
			URL:          id.URL,
		}))
	}

	if v.Location != nil {
		f.Location = buildLocation(rep.Type, v.Location)
	}

	if v.Tracking != nil {
		for _, item := range v.Tracking.Items {
			for _, sig := range item.Signatures {
				if sig.Valid() {
					f.Signatures = append(f.Signatures, sig)
				}
			}
		}
	}

	f.CompareKey = compareKey(f, v)
	f.Remediations = remediationsFor(doc.Remediations, v)
	f.ComputeUUID(opts.Namespace)
	return f
}

func findingScanner(rep *report.Report, doc *document, v *vulnerability) *report.Scanner {
	var s report.Scanner
	switch {
	case v.Scanner != nil && v.Scanner.ID != "":
		s = v.Scanner.toScanner()
		if doc.Scan != nil && doc.Scan.Scanner != nil && doc.Scan.Scanner.ID == s.ExternalID {
			s = doc.Scan.Scanner.toScanner()
		}
	case doc.Scan != nil && doc.Scan.Scanner != nil && doc.Scan.Scanner.ID != "":
		s = doc.Scan.Scanner.toScanner()
	default:
		return nil
	}
	s = rep.AddScanner(s)
	return &s
}

func buildLocation(kind report.ReportType, l *locationSection) *report.Location {
	loc := &report.Location{
		Kind:            kind,
		File:            l.File,
		StartLine:       l.StartLine,
		EndLine:         l.EndLine,
		Class:           l.Class,
		Method:          l.Method,
		Image:           l.Image,
		OperatingSystem: l.OperatingSystem,
		Hostname:        l.Hostname,
		Path:            l.Path,
		Param:           l.Param,
		CrashType:       l.CrashType,
		CrashAddress:    l.CrashAddress,
		CrashState:      l.CrashState,
	}
	if l.Dependency != nil {
		loc.PackageName = l.Dependency.Package.Name
		loc.PackageVersion = l.Dependency.Version
	}
	if l.Commit != nil {
		loc.CommitSHA = l.Commit.SHA
	}
	return loc
}

func compareKey(f *report.Finding, v *vulnerability) string {
	if v.CVE != "" {
		return v.CVE
	}
	parts := []string{f.ReportType.String()}
	if f.Location != nil {
		parts = append(parts, f.Location.Fingerprint())
	}
	if id := f.PrimaryIdentifier(); id != nil {
		parts = append(parts, id.ExternalType, id.ExternalID)
	}
	return strings.Join(parts, ":")
}

func remediationsFor(all []remediation, v *vulnerability) []report.Remediation {
	var out []report.Remediation
	for _, r := range all {
		for _, fix := range r.Fixes {
			if (fix.ID != "" && fix.ID == v.ID) || (fix.CVE != "" && fix.CVE == v.CVE) {
				out = append(out, report.Remediation{Summary: r.Summary, Diff: r.Diff})
				break
			}
		}
	}
	return out
}
