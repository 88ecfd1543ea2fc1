package gorm

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

var _ store.VulnerabilitiesStore = (*VulnerabilitiesStore)(nil)

// VulnerabilitiesStore implements store.VulnerabilitiesStore using GORM
type VulnerabilitiesStore struct {
	db *gorm.DB
}

// NewVulnerabilitiesStore creates a new VulnerabilitiesStore
func NewVulnerabilitiesStore(db *gorm.DB) *VulnerabilitiesStore {
	return &VulnerabilitiesStore{db: db}
}

func (s *VulnerabilitiesStore) FindForOverride(ctx context.Context, projectID int64, reportType report.ReportType, fingerprints []string) ([]model.Vulnerability, error) {
	if len(fingerprints) == 0 {
		return nil, nil
	}
	var vulns []model.Vulnerability
	err := s.db.WithContext(ctx).
		Preload("Scanner").
		Preload("Signatures").
		Where("project_id = ? AND report_type = ? AND primary_identifier_fingerprint IN ?", projectID, reportType, fingerprints).
		Order("id").
		Find(&vulns).Error
	return vulns, err
}

func (s *VulnerabilitiesStore) FindByUUIDs(ctx context.Context, projectID int64, uuids []string) ([]model.Vulnerability, error) {
	if len(uuids) == 0 {
		return nil, nil
	}
	var vulns []model.Vulnerability
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND uuid IN ?", projectID, uuids).
		Order("id").
		Find(&vulns).Error
	return vulns, err
}

func (s *VulnerabilitiesStore) SaveVulnerability(ctx context.Context, vuln *model.Vulnerability) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "uuid"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"scanner_id", "severity", "name", "location_fingerprint",
					"location", "old_location", "resolved_on_default_branch", "updated_at",
				}),
			}).
			Create(vuln).Error
		if err != nil {
			return err
		}

		if err := tx.Where("finding_id = ?", vuln.ID).Delete(&model.VulnerabilitySignature{}).Error; err != nil {
			return err
		}
		if len(vuln.Signatures) == 0 {
			return nil
		}
		for i := range vuln.Signatures {
			vuln.Signatures[i].ID = 0
			vuln.Signatures[i].FindingID = vuln.ID
		}
		return tx.Create(&vuln.Signatures).Error
	})
}

func (s *VulnerabilitiesStore) MarkResolvedOnDefaultBranch(ctx context.Context, projectID int64, reportTypes []report.ReportType, scannerIDs []int64, present []string) (int64, error) {
	if len(reportTypes) == 0 || len(scannerIDs) == 0 {
		return 0, nil
	}
	tx := s.db.WithContext(ctx).Model(&model.Vulnerability{}).
		Where("project_id = ? AND report_type IN ? AND scanner_id IN ?", projectID, reportTypes, scannerIDs).
		Where("resolved_on_default_branch = ?", false)
	if len(present) > 0 {
		tx = tx.Where("uuid NOT IN ?", present)
	}
	tx = tx.Update("resolved_on_default_branch", true)
	return tx.RowsAffected, tx.Error
}

func (s *VulnerabilitiesStore) CountVulnerabilities(ctx context.Context, projectID int64, states []string, reportTypes []report.ReportType, severities []report.Severity) (int64, error) {
	if len(states) == 0 {
		return 0, nil
	}
	tx := s.db.WithContext(ctx).Model(&model.Vulnerability{}).
		Where("project_id = ? AND state IN ?", projectID, states)
	if len(reportTypes) > 0 {
		tx = tx.Where("report_type IN ?", reportTypes)
	}
	if len(severities) > 0 {
		tx = tx.Where("severity IN ?", severities)
	}
	var count int64
	err := tx.Count(&count).Error
	return count, err
}
