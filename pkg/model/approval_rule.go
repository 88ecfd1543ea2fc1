package model

import (
	"time"

	"github.com/lib/pq"
)

// Approval rule vulnerability states. The "new" states apply to findings
// that are not present on the target branch.
const (
	StateNewlyDetected  = "newly_detected"
	StateNewNeedsTriage = "new_needs_triage"
	StateNewDismissed   = "new_dismissed"
)

// ApprovalRule is a scan result policy rule attached to a project ref.
type ApprovalRule struct {
	ID                        int64
	ProjectID                 int64
	Name                      string
	Ref                       string
	TargetRef                 string
	Scanners                  pq.StringArray `gorm:"type:text[]"`
	SeverityLevels            pq.StringArray `gorm:"type:text[]"`
	VulnerabilityStates       pq.StringArray `gorm:"type:text[]"`
	VulnerabilitiesAllowed    int
	ApprovalsRequired         int
	OriginalApprovalsRequired int
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

func (ApprovalRule) TableName() string {
	return "approval_rules"
}

func (r *ApprovalRule) hasState(states ...string) bool {
	for _, s := range r.VulnerabilityStates {
		for _, want := range states {
			if s == want {
				return true
			}
		}
	}
	return false
}

// CountsNewlyDetected reports whether new findings without an existing
// vulnerability are counted.
func (r *ApprovalRule) CountsNewlyDetected() bool {
	return len(r.VulnerabilityStates) == 0 || r.hasState(StateNewlyDetected, StateNewNeedsTriage)
}

// CountsNewDismissed reports whether new findings whose existing
// vulnerability is dismissed are counted.
func (r *ApprovalRule) CountsNewDismissed() bool {
	return r.hasState(StateNewlyDetected, StateNewDismissed)
}

// PreExistingStates returns the states of existing vulnerabilities the rule
// counts.
func (r *ApprovalRule) PreExistingStates() []string {
	var out []string
	for _, s := range r.VulnerabilityStates {
		switch s {
		case StateDetected, StateConfirmed, StateResolved, StateDismissed:
			out = append(out, s)
		}
	}
	return out
}
