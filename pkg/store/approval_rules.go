package store

import (
	"context"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
)

// ApprovalRulesStore abstracts scan result policy rule storage
type ApprovalRulesStore interface {
	ListApprovalRules(ctx context.Context, projectID int64) ([]model.ApprovalRule, error)

	// SaveApprovalRule upserts by project, name and ref.
	SaveApprovalRule(ctx context.Context, rule *model.ApprovalRule) error

	UpdateApprovalsRequired(ctx context.Context, rule *model.ApprovalRule, approvalsRequired int) error
}
