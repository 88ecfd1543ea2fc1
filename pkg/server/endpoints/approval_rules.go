package endpoints

import (
	"net/http"

	"github.com/doodlesbykumbi/scanstore/pkg/server"
)

type ApprovalRuleResponse struct {
	ID                        int64    `json:"id"`
	Name                      string   `json:"name"`
	Ref                       string   `json:"ref"`
	TargetRef                 string   `json:"target_ref,omitempty"`
	Scanners                  []string `json:"scanners"`
	SeverityLevels            []string `json:"severity_levels"`
	VulnerabilityStates       []string `json:"vulnerability_states"`
	VulnerabilitiesAllowed    int      `json:"vulnerabilities_allowed"`
	ApprovalsRequired         int      `json:"approvals_required"`
	OriginalApprovalsRequired int      `json:"original_approvals_required"`
}

// RegisterApprovalRulesEndpoints registers the approval rule listing
func RegisterApprovalRulesEndpoints(s *server.Server) {
	s.Protected().HandleFunc("/projects/{project_id}/approval_rules", handleListApprovalRules(s)).Methods("GET")
}

func strs(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func handleListApprovalRules(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		projectID, ok := pathID(r, "project_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "Invalid project id")
			return
		}

		if _, err := s.Stores.Pipelines.FindProject(ctx, projectID); err != nil {
			handleStoreError(w, s.Logger, err)
			return
		}

		rules, err := s.Stores.ApprovalRules.ListApprovalRules(ctx, projectID)
		if err != nil {
			handleStoreError(w, s.Logger, err)
			return
		}

		out := make([]ApprovalRuleResponse, 0, len(rules))
		for _, rule := range rules {
			out = append(out, ApprovalRuleResponse{
				ID:                        rule.ID,
				Name:                      rule.Name,
				Ref:                       rule.Ref,
				TargetRef:                 rule.TargetRef,
				Scanners:                  strs(rule.Scanners),
				SeverityLevels:            strs(rule.SeverityLevels),
				VulnerabilityStates:       strs(rule.VulnerabilityStates),
				VulnerabilitiesAllowed:    rule.VulnerabilitiesAllowed,
				ApprovalsRequired:         rule.ApprovalsRequired,
				OriginalApprovalsRequired: rule.OriginalApprovalsRequired,
			})
		}
		respondWithJSON(w, http.StatusOK, out)
	}
}
