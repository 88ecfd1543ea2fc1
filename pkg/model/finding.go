package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doodlesbykumbi/scanstore/pkg/report"
)

// Finding is a security finding row. Rows live in the security_findings
// partition named by PartitionNumber.
type Finding struct {
	ID              int64
	ScanID          int64
	ScannerID       int64
	PartitionNumber int
	UUID            string  `gorm:"column:uuid"`
	OverriddenUUID  *string `gorm:"column:overridden_uuid"`
	Severity        report.Severity
	Deduplicated    bool
	FindingData     FindingData `gorm:"type:jsonb"`

	Scan    *Scan    `gorm:"foreignKey:ScanID"`
	Scanner *Scanner `gorm:"foreignKey:ScannerID"`
}

func (Finding) TableName() string {
	return "security_findings"
}

// FindingData holds the report attributes of a finding that are not
// queried directly.
type FindingData struct {
	Name                   string               `json:"name"`
	Description            string               `json:"description,omitempty"`
	Solution               string               `json:"solution,omitempty"`
	Message                string               `json:"message,omitempty"`
	Identifiers            []report.Identifier  `json:"identifiers"`
	Links                  []report.Link        `json:"links,omitempty"`
	Location               *report.Location     `json:"location,omitempty"`
	Signatures             []report.Signature   `json:"signatures,omitempty"`
	Evidence               json.RawMessage      `json:"evidence,omitempty"`
	Assets                 json.RawMessage      `json:"assets,omitempty"`
	Details                json.RawMessage      `json:"details,omitempty"`
	RawSourceCodeExtract   string               `json:"raw_source_code_extract,omitempty"`
	Remediations           []report.Remediation `json:"remediations,omitempty"`
	RemediationByteOffsets []ByteOffset         `json:"remediation_byte_offsets,omitempty"`
	FalsePositive          bool                 `json:"false_positive"`
}

// ByteOffset locates a remediation inside the stored report artifact.
type ByteOffset struct {
	StartByte int `json:"start_byte"`
	EndByte   int `json:"end_byte"`
}

func (d FindingData) Value() (driver.Value, error) {
	return jsonValue(d)
}

func (d *FindingData) Scan(src interface{}) error {
	*d = FindingData{}
	return jsonScan(src, d)
}

// NewFindingData extracts the stored attributes of a report finding.
func NewFindingData(f *report.Finding) FindingData {
	return FindingData{
		Name:                 f.Name,
		Description:          f.Description,
		Solution:             f.Solution,
		Message:              f.Message,
		Identifiers:          f.Identifiers,
		Links:                f.Links,
		Location:             f.Location,
		Signatures:           f.Signatures,
		Evidence:             f.Evidence,
		Assets:               f.Assets,
		Details:              f.Details,
		RawSourceCodeExtract: f.RawSourceCodeExtract,
		Remediations:         f.Remediations,
		FalsePositive:        f.FalsePositive(),
	}
}

// PrimaryIdentifier returns the first stored identifier, or nil.
func (d FindingData) PrimaryIdentifier() *report.Identifier {
	if len(d.Identifiers) == 0 {
		return nil
	}
	return &d.Identifiers[0]
}

// FindingPartition is a security_findings partition.
type FindingPartition struct {
	Number    int `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
}

func (FindingPartition) TableName() string {
	return "security_finding_partitions"
}

// PartitionTable returns the name of the table holding partition n.
func PartitionTable(n int) string {
	return fmt.Sprintf("security_findings_%d", n)
}
