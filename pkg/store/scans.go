package store

import (
	"context"
	"time"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
)

// ScanFilter narrows a scan listing. Zero values don't filter.
type ScanFilter struct {
	PipelineIDs []int64
	BuildIDs    []int64
	ScanTypes   []report.ReportType
	Statuses    []model.ScanStatus

	LatestOnly    bool
	WithErrors    bool
	WithoutErrors bool
	WithWarnings  bool
}

// ScansStore abstracts security scan storage
type ScansStore interface {
	// FindOrCreateScan looks the scan up by build and scan type, creating it
	// from scan when absent. scan is replaced by the stored row and created
	// reports whether a row was inserted.
	FindOrCreateScan(ctx context.Context, scan *model.Scan) (created bool, err error)

	// SaveScan updates status, latest and info.
	SaveScan(ctx context.Context, scan *model.Scan) error

	// FindScan returns ErrScanNotFound if the scan doesn't exist
	FindScan(ctx context.Context, id int64) (*model.Scan, error)

	// ListScans returns scans ordered by created_at, id.
	ListScans(ctx context.Context, filter ScanFilter) ([]model.Scan, error)

	// DistinctScanTypes returns the scan types of the latest succeeded scans
	// of a pipeline.
	DistinctScanTypes(ctx context.Context, pipelineID int64) ([]report.ReportType, error)

	// PurgeStaleScans marks up to limit unpurged scans created before the
	// cutoff as purged and returns how many were marked.
	PurgeStaleScans(ctx context.Context, before time.Time, limit int) (int64, error)
}
