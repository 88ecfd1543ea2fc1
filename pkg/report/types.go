package report

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// ReportType identifies the analyzer category that produced a report.
type ReportType int

const (
	ReportTypeSAST                 ReportType = 1
	ReportTypeDependencyScanning   ReportType = 2
	ReportTypeContainerScanning    ReportType = 3
	ReportTypeDAST                 ReportType = 4
	ReportTypeSecretDetection      ReportType = 5
	ReportTypeCoverageFuzzing      ReportType = 6
	ReportTypeAPIFuzzing           ReportType = 7
	ReportTypeClusterImageScanning ReportType = 8
)

var reportTypeNames = map[ReportType]string{
	ReportTypeSAST:                 "sast",
	ReportTypeDependencyScanning:   "dependency_scanning",
	ReportTypeContainerScanning:    "container_scanning",
	ReportTypeDAST:                 "dast",
	ReportTypeSecretDetection:      "secret_detection",
	ReportTypeCoverageFuzzing:      "coverage_fuzzing",
	ReportTypeAPIFuzzing:           "api_fuzzing",
	ReportTypeClusterImageScanning: "cluster_image_scanning",
}

// ReportTypes returns every known report type in ascending order.
func ReportTypes() []ReportType {
	return []ReportType{
		ReportTypeSAST,
		ReportTypeDependencyScanning,
		ReportTypeContainerScanning,
		ReportTypeDAST,
		ReportTypeSecretDetection,
		ReportTypeCoverageFuzzing,
		ReportTypeAPIFuzzing,
		ReportTypeClusterImageScanning,
	}
}

func (t ReportType) String() string {
	if name, ok := reportTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ReportType(%d)", int(t))
}

// Valid reports whether t is a known report type.
func (t ReportType) Valid() bool {
	_, ok := reportTypeNames[t]
	return ok
}

// ParseReportType converts a report type name into a ReportType.
func ParseReportType(s string) (ReportType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range reportTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%q is not a valid report type", s)
}

func (t ReportType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ReportType) UnmarshalText(text []byte) error {
	parsed, err := ParseReportType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t ReportType) Value() (driver.Value, error) {
	return int64(t), nil
}

func (t *ReportType) Scan(src interface{}) error {
	n, err := scanInt(src)
	if err != nil {
		return fmt.Errorf("scan report type: %w", err)
	}
	*t = ReportType(n)
	return nil
}

// Severity is the scanner-assigned severity of a finding.
type Severity int

const (
	SeverityInfo     Severity = 1
	SeverityUnknown  Severity = 2
	SeverityLow      Severity = 4
	SeverityMedium   Severity = 5
	SeverityHigh     Severity = 6
	SeverityCritical Severity = 7
)

var severityNames = map[Severity]string{
	SeverityInfo:     "info",
	SeverityUnknown:  "unknown",
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// ParseSeverity converts a severity name into a Severity. Analyzers emit
// capitalized names ("High"), so the comparison is case insensitive.
func ParseSeverity(s string) (Severity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for sev, name := range severityNames {
		if name == s {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("%q is not a valid severity", s)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Severity) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *Severity) Scan(src interface{}) error {
	n, err := scanInt(src)
	if err != nil {
		return fmt.Errorf("scan severity: %w", err)
	}
	*s = Severity(n)
	return nil
}

// Confidence is the scanner-assigned confidence of a finding.
type Confidence int

const (
	ConfidenceUndefined    Confidence = 0
	ConfidenceIgnore       Confidence = 1
	ConfidenceUnknown      Confidence = 2
	ConfidenceExperimental Confidence = 3
	ConfidenceLow          Confidence = 4
	ConfidenceMedium       Confidence = 5
	ConfidenceHigh         Confidence = 6
	ConfidenceConfirmed    Confidence = 7
)

var confidenceNames = map[Confidence]string{
	ConfidenceUndefined:    "undefined",
	ConfidenceIgnore:       "ignore",
	ConfidenceUnknown:      "unknown",
	ConfidenceExperimental: "experimental",
	ConfidenceLow:          "low",
	ConfidenceMedium:       "medium",
	ConfidenceHigh:         "high",
	ConfidenceConfirmed:    "confirmed",
}

func (c Confidence) String() string {
	if name, ok := confidenceNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Confidence(%d)", int(c))
}

// ParseConfidence converts a confidence name into a Confidence. Empty input
// is undefined.
func ParseConfidence(s string) (Confidence, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ConfidenceUndefined, nil
	}
	for c, name := range confidenceNames {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%q is not a valid confidence", s)
}

func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Confidence) UnmarshalText(text []byte) error {
	parsed, err := ParseConfidence(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func scanInt(src interface{}) (int64, error) {
	switch v := src.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int:
		return int64(v), nil
	case []byte:
		var n int64
		_, err := fmt.Sscanf(string(v), "%d", &n)
		return n, err
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", src)
	}
}
