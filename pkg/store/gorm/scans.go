package gorm

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

var _ store.ScansStore = (*ScansStore)(nil)

// ScansStore implements store.ScansStore using GORM
type ScansStore struct {
	db *gorm.DB
}

// NewScansStore creates a new ScansStore
func NewScansStore(db *gorm.DB) *ScansStore {
	return &ScansStore{db: db}
}

func (s *ScansStore) FindOrCreateScan(ctx context.Context, scan *model.Scan) (bool, error) {
	if err := scan.Validate(); err != nil {
		return false, err
	}

	var existing model.Scan
	err := s.db.WithContext(ctx).
		Where("build_id = ? AND scan_type = ?", scan.BuildID, scan.ScanType).
		First(&existing).Error
	switch {
	case err == nil:
		*scan = existing
		return false, nil
	case err != gorm.ErrRecordNotFound:
		return false, err
	}

	if err := s.db.WithContext(ctx).Create(scan).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (s *ScansStore) SaveScan(ctx context.Context, scan *model.Scan) error {
	if err := scan.Validate(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(scan).Updates(map[string]interface{}{
		"status":     scan.Status,
		"latest":     scan.Latest,
		"info":       scan.Info,
		"updated_at": time.Now(),
	}).Error
}

func (s *ScansStore) FindScan(ctx context.Context, id int64) (*model.Scan, error) {
	var scan model.Scan
	if err := s.db.WithContext(ctx).First(&scan, id).Error; err != nil {
		return nil, notFound(err, store.ErrScanNotFound)
	}
	return &scan, nil
}

func (s *ScansStore) ListScans(ctx context.Context, filter store.ScanFilter) ([]model.Scan, error) {
	var scans []model.Scan
	err := scopeScans(s.db.WithContext(ctx), filter).
		Order("created_at, id").
		Find(&scans).Error
	return scans, err
}

func scopeScans(tx *gorm.DB, filter store.ScanFilter) *gorm.DB {
	if len(filter.PipelineIDs) > 0 {
		tx = tx.Where("pipeline_id IN ?", filter.PipelineIDs)
	}
	if len(filter.BuildIDs) > 0 {
		tx = tx.Where("build_id IN ?", filter.BuildIDs)
	}
	if types := validScanTypes(filter.ScanTypes); len(types) > 0 {
		tx = tx.Where("scan_type IN ?", types)
	} else if len(filter.ScanTypes) > 0 {
		// Only unknown types were asked for.
		tx = tx.Where("1 = 0")
	}
	if len(filter.Statuses) > 0 {
		tx = tx.Where("status IN ?", filter.Statuses)
	}
	if filter.LatestOnly {
		tx = tx.Where("latest = ?", true)
	}
	if filter.WithErrors {
		tx = tx.Where("jsonb_array_length(COALESCE(info->'errors', '[]'::jsonb)) > 0")
	}
	if filter.WithoutErrors {
		tx = tx.Where("jsonb_array_length(COALESCE(info->'errors', '[]'::jsonb)) = 0")
	}
	if filter.WithWarnings {
		tx = tx.Where("jsonb_array_length(COALESCE(info->'warnings', '[]'::jsonb)) > 0")
	}
	return tx
}

func validScanTypes(types []report.ReportType) []report.ReportType {
	var out []report.ReportType
	for _, t := range types {
		if t.Valid() {
			out = append(out, t)
		}
	}
	return out
}

func (s *ScansStore) DistinctScanTypes(ctx context.Context, pipelineID int64) ([]report.ReportType, error) {
	var types []report.ReportType
	err := s.db.WithContext(ctx).Model(&model.Scan{}).
		Distinct("scan_type").
		Where("pipeline_id = ? AND latest = ? AND status = ?", pipelineID, true, model.ScanStatusSucceeded).
		Order("scan_type").
		Pluck("scan_type", &types).Error
	return types, err
}

func (s *ScansStore) PurgeStaleScans(ctx context.Context, before time.Time, limit int) (int64, error) {
	ids := s.db.Model(&model.Scan{}).
		Select("id").
		Where("created_at < ? AND status <> ?", before, model.ScanStatusPurged).
		Order("created_at, id").
		Limit(limit)

	tx := s.db.WithContext(ctx).Model(&model.Scan{}).
		Where("id IN (?)", ids).
		Updates(map[string]interface{}{"status": model.ScanStatusPurged, "updated_at": time.Now()})
	return tx.RowsAffected, tx.Error
}
