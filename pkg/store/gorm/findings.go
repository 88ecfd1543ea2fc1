package gorm

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

var (
	_ store.FindingsStore = (*FindingsStore)(nil)
	_ store.ScannersStore = (*ScannersStore)(nil)
)

const defaultBatchSize = 100

// FindingsStore implements store.FindingsStore using GORM
type FindingsStore struct {
	db *gorm.DB
}

// NewFindingsStore creates a new FindingsStore
func NewFindingsStore(db *gorm.DB) *FindingsStore {
	return &FindingsStore{db: db}
}

func (s *FindingsStore) ScanHasFindings(ctx context.Context, scan *model.Scan) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Finding{}).
		Where("scan_id = ? AND partition_number = ?", scan.ID, scan.FindingsPartitionNumber).
		Count(&count).Error
	return count > 0, err
}

func (s *FindingsStore) InsertFindings(ctx context.Context, findings []model.Finding, batchSize int) error {
	if len(findings) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&findings, batchSize).Error
}

func (s *FindingsStore) MarkDeduplicated(ctx context.Context, scan *model.Scan, uuids []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scoped := func() *gorm.DB {
			return tx.Model(&model.Finding{}).
				Where("scan_id = ? AND partition_number = ?", scan.ID, scan.FindingsPartitionNumber)
		}
		if err := scoped().Update("deduplicated", false).Error; err != nil {
			return err
		}
		if len(uuids) == 0 {
			return nil
		}
		return scoped().Where("uuid IN ?", uuids).Update("deduplicated", true).Error
	})
}

// pipelineFindings scopes to deduplicated findings of the latest succeeded
// scans of a pipeline.
func (s *FindingsStore) pipelineFindings(ctx context.Context, pipelineID int64) *gorm.DB {
	return s.db.WithContext(ctx).Model(&model.Finding{}).
		Joins("JOIN security_scans ON security_scans.id = security_findings.scan_id AND security_scans.findings_partition_number = security_findings.partition_number").
		Where("security_scans.pipeline_id = ? AND security_scans.latest = ? AND security_scans.status = ?", pipelineID, true, model.ScanStatusSucceeded).
		Where("security_findings.deduplicated = ?", true)
}

func (s *FindingsStore) filtered(ctx context.Context, filter store.FindingFilter) *gorm.DB {
	tx := s.pipelineFindings(ctx, filter.PipelineID)
	if len(filter.ScanTypes) > 0 {
		tx = tx.Where("security_scans.scan_type IN ?", filter.ScanTypes)
	}
	if len(filter.Severities) > 0 {
		tx = tx.Where("security_findings.severity IN ?", filter.Severities)
	}
	if len(filter.ScannerExternalIDs) > 0 {
		tx = tx.Where("security_findings.scanner_id IN (SELECT id FROM vulnerability_scanners WHERE external_id IN ?)", filter.ScannerExternalIDs)
	}
	if filter.ExcludeDismissed {
		tx = tx.Where("NOT EXISTS (SELECT 1 FROM vulnerability_occurrences WHERE vulnerability_occurrences.uuid = security_findings.uuid AND vulnerability_occurrences.state = ?)", model.StateDismissed)
	}
	if len(filter.States) > 0 {
		const withState = "EXISTS (SELECT 1 FROM vulnerability_occurrences WHERE vulnerability_occurrences.uuid = security_findings.uuid AND vulnerability_occurrences.state IN ?)"
		if containsString(filter.States, model.StateDetected) {
			tx = tx.Where("("+withState+" OR NOT EXISTS (SELECT 1 FROM vulnerability_occurrences WHERE vulnerability_occurrences.uuid = security_findings.uuid))", filter.States)
		} else {
			tx = tx.Where(withState, filter.States)
		}
	}
	return tx
}

func (s *FindingsStore) ListFindings(ctx context.Context, filter store.FindingFilter) ([]model.Finding, int64, error) {
	var total int64
	if err := s.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var findings []model.Finding
	tx := s.filtered(ctx, filter).
		Select("security_findings.*").
		Preload("Scanner").
		Preload("Scan").
		Order("security_findings.severity DESC, security_findings.id")
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		tx = tx.Offset(filter.Offset)
	}
	if err := tx.Find(&findings).Error; err != nil {
		return nil, 0, err
	}
	return findings, total, nil
}

func (s *FindingsStore) PipelineFindingUUIDs(ctx context.Context, pipelineID int64, scanTypes []report.ReportType, severities []report.Severity) ([]string, error) {
	var uuids []string
	err := s.filtered(ctx, store.FindingFilter{PipelineID: pipelineID, ScanTypes: scanTypes, Severities: severities}).
		Pluck("security_findings.uuid", &uuids).Error
	return uuids, err
}

func (s *FindingsStore) PipelineFindings(ctx context.Context, pipelineID int64, scanType report.ReportType) ([]model.Finding, error) {
	var findings []model.Finding
	err := s.filtered(ctx, store.FindingFilter{PipelineID: pipelineID, ScanTypes: []report.ReportType{scanType}}).
		Select("security_findings.*").
		Preload("Scanner").
		Order("security_findings.id").
		Find(&findings).Error
	return findings, err
}

func (s *FindingsStore) DeletePurgedFindings(ctx context.Context, before time.Time) (int64, error) {
	tx := s.db.WithContext(ctx).Exec(
		`DELETE FROM security_findings WHERE scan_id IN (SELECT id FROM security_scans WHERE status = ? AND created_at < ?)`,
		model.ScanStatusPurged, before,
	)
	return tx.RowsAffected, tx.Error
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ScannersStore implements store.ScannersStore using GORM
type ScannersStore struct {
	db *gorm.DB
}

// NewScannersStore creates a new ScannersStore
func NewScannersStore(db *gorm.DB) *ScannersStore {
	return &ScannersStore{db: db}
}

func (s *ScannersStore) FindOrCreateScanner(ctx context.Context, scanner *model.Scanner) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "vendor"}),
		}).
		Create(scanner).Error
}
