package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/doodlesbykumbi/scanstore/pkg/report"
)

// ScanStatus is the lifecycle state of a security scan.
type ScanStatus int

const (
	ScanStatusCreated ScanStatus = iota
	ScanStatusSucceeded
	ScanStatusJobFailed
	ScanStatusReportError
	ScanStatusPreparing
	ScanStatusPreparationFailed
	ScanStatusPurged
)

var scanStatusNames = map[ScanStatus]string{
	ScanStatusCreated:           "created",
	ScanStatusSucceeded:         "succeeded",
	ScanStatusJobFailed:         "job_failed",
	ScanStatusReportError:       "report_error",
	ScanStatusPreparing:         "preparing",
	ScanStatusPreparationFailed: "preparation_failed",
	ScanStatusPurged:            "purged",
}

func (s ScanStatus) String() string {
	if name, ok := scanStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ScanStatus(%d)", int(s))
}

// ParseScanStatus returns the status with the given name.
func ParseScanStatus(name string) (ScanStatus, error) {
	for s, n := range scanStatusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown scan status %q", name)
}

func (s ScanStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ScanStatus) UnmarshalText(text []byte) error {
	v, err := ParseScanStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s ScanStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *ScanStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*s = ScanStatus(v)
	case int32:
		*s = ScanStatus(v)
	case []byte:
		var n int
		if _, err := fmt.Sscan(string(v), &n); err != nil {
			return err
		}
		*s = ScanStatus(n)
	default:
		return fmt.Errorf("cannot scan %T into ScanStatus", src)
	}
	return nil
}

// ScanIngestionError is the processing error recorded when storing findings
// fails for an otherwise valid report.
var ScanIngestionError = report.Error{Type: "ScanIngestionError", Message: "Ingestion failed for security scan"}

// ScanInfo is the jsonb info column of a scan.
type ScanInfo struct {
	Errors   []report.Error `json:"errors,omitempty"`
	Warnings []report.Error `json:"warnings,omitempty"`
}

func (i ScanInfo) Value() (driver.Value, error) {
	return jsonValue(i)
}

func (i *ScanInfo) Scan(src interface{}) error {
	*i = ScanInfo{}
	return jsonScan(src, i)
}

// Validate checks that every recorded error and warning has a type and a
// message.
func (i ScanInfo) Validate() error {
	for _, list := range [][]report.Error{i.Errors, i.Warnings} {
		for n, e := range list {
			if e.Type == "" || e.Message == "" {
				return fmt.Errorf("info entry %d must have a type and a message", n)
			}
		}
	}
	return nil
}

// Scan records the outcome of storing one security report artifact.
type Scan struct {
	ID                      int64
	BuildID                 int64
	PipelineID              int64
	ProjectID               int64
	ScanType                report.ReportType
	Status                  ScanStatus
	Latest                  bool
	Info                    ScanInfo `gorm:"type:jsonb"`
	FindingsPartitionNumber int
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (Scan) TableName() string {
	return "security_scans"
}

var ErrInvalidScanType = errors.New("scan type is not a known report type")

// Validate is run before the scan is written.
func (s *Scan) Validate() error {
	if !s.ScanType.Valid() {
		return ErrInvalidScanType
	}
	return s.Info.Validate()
}

func (s *Scan) ProcessingErrors() []report.Error {
	return s.Info.Errors
}

func (s *Scan) ProcessingWarnings() []report.Error {
	return s.Info.Warnings
}

func (s *Scan) AddProcessingError(e report.Error) {
	s.Info.Errors = append(s.Info.Errors, e)
}

func (s *Scan) HasErrors() bool {
	return len(s.Info.Errors) > 0
}

func (s *Scan) HasWarnings() bool {
	return len(s.Info.Warnings) > 0
}

// Stale reports whether the scan is older than the retention period and has
// not been purged yet.
func (s *Scan) Stale(now time.Time, retention time.Duration) bool {
	return s.Status != ScanStatusPurged && s.CreatedAt.Before(now.Add(-retention))
}

// FindingsCanBePurged reports whether the scan is purged and its findings
// are past the retention period.
func (s *Scan) FindingsCanBePurged(now time.Time, retention time.Duration) bool {
	return s.Status == ScanStatusPurged && s.CreatedAt.Before(now.Add(-retention))
}

// RetentionPeriod converts a number of days into a duration.
func RetentionPeriod(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}
