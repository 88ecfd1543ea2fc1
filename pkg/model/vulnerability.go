package model

import (
	"database/sql/driver"
	"time"

	"github.com/doodlesbykumbi/scanstore/pkg/report"
)

// Vulnerability states.
const (
	StateDetected  = "detected"
	StateConfirmed = "confirmed"
	StateResolved  = "resolved"
	StateDismissed = "dismissed"
)

// Vulnerability is an existing vulnerability finding of a project, created
// from default branch pipelines.
type Vulnerability struct {
	ID                           int64
	ProjectID                    int64
	ScannerID                    int64
	UUID                         string `gorm:"column:uuid"`
	ReportType                   report.ReportType
	Severity                     report.Severity
	Name                         string
	PrimaryIdentifierFingerprint string
	LocationFingerprint          string
	Location                     LocationData  `gorm:"type:jsonb"`
	OldLocation                  *LocationData `gorm:"type:jsonb"`
	State                        string
	ResolvedOnDefaultBranch      bool
	CreatedAt                    time.Time
	UpdatedAt                    time.Time

	Scanner    *Scanner                 `gorm:"foreignKey:ScannerID"`
	Signatures []VulnerabilitySignature `gorm:"foreignKey:FindingID"`
}

func (Vulnerability) TableName() string {
	return "vulnerability_occurrences"
}

func (v *Vulnerability) Dismissed() bool {
	return v.State == StateDismissed
}

// HasSignature reports whether any stored signature matches sha.
func (v *Vulnerability) HasSignature(sha string) bool {
	for _, s := range v.Signatures {
		if s.SignatureSHA == sha {
			return true
		}
	}
	return false
}

// VulnerabilitySignature is a tracking signature of an existing vulnerability.
// AlgorithmType is the signature algorithm priority.
type VulnerabilitySignature struct {
	ID            int64
	FindingID     int64
	AlgorithmType int
	SignatureSHA  string `gorm:"column:signature_sha"`
}

func (VulnerabilitySignature) TableName() string {
	return "vulnerability_finding_signatures"
}

// LocationData is a location stored in a jsonb column.
type LocationData struct {
	report.Location
}

func (l LocationData) Value() (driver.Value, error) {
	return jsonValue(l.Location)
}

func (l *LocationData) Scan(src interface{}) error {
	l.Location = report.Location{}
	return jsonScan(src, &l.Location)
}
