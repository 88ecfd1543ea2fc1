package store

import (
	"context"
	"time"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
)

// FindingFilter narrows a finding listing. Only deduplicated findings of
// latest succeeded scans of the pipeline are considered.
type FindingFilter struct {
	PipelineID         int64
	ScanTypes          []report.ReportType
	Severities         []report.Severity
	ScannerExternalIDs []string

	// States filters by existing vulnerability state. Findings without an
	// existing vulnerability are "detected".
	States []string

	ExcludeDismissed bool

	Limit  int
	Offset int
}

// FindingsStore abstracts security finding storage
type FindingsStore interface {
	// ScanHasFindings reports whether any finding was stored for the scan.
	ScanHasFindings(ctx context.Context, scan *model.Scan) (bool, error)

	// InsertFindings inserts findings in batches. Rows that conflict on
	// (uuid, scan_id, partition_number) are skipped.
	InsertFindings(ctx context.Context, findings []model.Finding, batchSize int) error

	// MarkDeduplicated sets deduplicated to true for uuids and false for
	// every other finding of the scan, in one transaction.
	MarkDeduplicated(ctx context.Context, scan *model.Scan, uuids []string) error

	// ListFindings returns one page of findings, ordered by severity
	// descending then id, and the total count.
	ListFindings(ctx context.Context, filter FindingFilter) ([]model.Finding, int64, error)

	// PipelineFindingUUIDs returns the deduplicated finding UUIDs of the
	// latest succeeded scans of a pipeline.
	PipelineFindingUUIDs(ctx context.Context, pipelineID int64, scanTypes []report.ReportType, severities []report.Severity) ([]string, error)

	// PipelineFindings returns the deduplicated findings of the latest
	// succeeded scans of a pipeline for one scan type, with scanners loaded.
	PipelineFindings(ctx context.Context, pipelineID int64, scanType report.ReportType) ([]model.Finding, error)

	// DeletePurgedFindings deletes the findings of purged scans created
	// before the cutoff.
	DeletePurgedFindings(ctx context.Context, before time.Time) (int64, error)
}

// ScannersStore abstracts project scanner storage
type ScannersStore interface {
	// FindOrCreateScanner upserts by project and external id and sets
	// scanner.ID.
	FindOrCreateScanner(ctx context.Context, scanner *model.Scanner) error
}
