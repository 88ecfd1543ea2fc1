package gorm

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

var _ store.ApprovalRulesStore = (*ApprovalRulesStore)(nil)

// ApprovalRulesStore implements store.ApprovalRulesStore using GORM
type ApprovalRulesStore struct {
	db *gorm.DB
}

// NewApprovalRulesStore creates a new ApprovalRulesStore
func NewApprovalRulesStore(db *gorm.DB) *ApprovalRulesStore {
	return &ApprovalRulesStore{db: db}
}

func (s *ApprovalRulesStore) ListApprovalRules(ctx context.Context, projectID int64) ([]model.ApprovalRule, error) {
	var rules []model.ApprovalRule
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("id").Find(&rules).Error
	return rules, err
}

func (s *ApprovalRulesStore) SaveApprovalRule(ctx context.Context, rule *model.ApprovalRule) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "project_id"}, {Name: "name"}, {Name: "ref"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"target_ref", "scanners", "severity_levels", "vulnerability_states",
				"vulnerabilities_allowed", "approvals_required", "original_approvals_required", "updated_at",
			}),
		}).
		Create(rule).Error
}

func (s *ApprovalRulesStore) UpdateApprovalsRequired(ctx context.Context, rule *model.ApprovalRule, approvalsRequired int) error {
	err := s.db.WithContext(ctx).Model(rule).Update("approvals_required", approvalsRequired).Error
	if err != nil {
		return err
	}
	rule.ApprovalsRequired = approvalsRequired
	return nil
}
