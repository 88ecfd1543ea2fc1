package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/doodlesbykumbi/scanstore/pkg/audit"
	"github.com/doodlesbykumbi/scanstore/pkg/logging"
	"github.com/doodlesbykumbi/scanstore/pkg/metrics"
	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

// Violation reasons.
const (
	ReasonTargetPipelineMissing = "target_pipeline_missing"
	ReasonScanRemoved           = "scan_removed"
	ReasonTooManyFindings       = "vulnerabilities_allowed_exceeded"
)

// Evaluation is the outcome of evaluating one rule against a pipeline.
type Evaluation struct {
	Violated bool
	Count    int64
	Reason   string
}

type Service struct {
	stores *store.Stores
	logger *slog.Logger
}

func NewService(stores *store.Stores, logger *slog.Logger) *Service {
	return &Service{stores: stores, logger: logging.Component(logger, "policy")}
}

// SyncApprovals evaluates every approval rule of the pipeline's project that
// applies to the pipeline's ref. Evaluation errors of one rule don't stop
// the others and are returned joined.
func (s *Service) SyncApprovals(ctx context.Context, pipeline *model.Pipeline) error {
	rules, err := s.stores.ApprovalRules.ListApprovalRules(ctx, pipeline.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to list approval rules of project %d: %w", pipeline.ProjectID, err)
	}

	var errs []error
	for i := range rules {
		if rules[i].Ref != pipeline.Ref {
			continue
		}
		if _, err := s.UpdateApprovals(ctx, &rules[i], pipeline); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UpdateApprovals evaluates rule against pipeline. A rule that is not
// violated has its approvals_required set to 0; a violated rule is left
// unchanged.
func (s *Service) UpdateApprovals(ctx context.Context, rule *model.ApprovalRule, pipeline *model.Pipeline) (*Evaluation, error) {
	eval, err := s.evaluate(ctx, rule, pipeline)
	if err != nil {
		metrics.ApprovalRulesEvaluatedTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if !eval.Violated && rule.ApprovalsRequired != 0 {
		if err := s.stores.ApprovalRules.UpdateApprovalsRequired(ctx, rule, 0); err != nil {
			metrics.ApprovalRulesEvaluatedTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to update approval rule %d: %w", rule.ID, err)
		}
	}

	result := "satisfied"
	if eval.Violated {
		result = "violated"
	}
	metrics.ApprovalRulesEvaluatedTotal.WithLabelValues(result).Inc()
	audit.Log(audit.ApprovalEvent{
		ProjectID:  rule.ProjectID,
		PipelineID: pipeline.ID,
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		Violated:   eval.Violated,
		Count:      eval.Count,
		Allowed:    rule.VulnerabilitiesAllowed,
		Reason:     eval.Reason,
	})
	s.logger.Info("evaluated approval rule",
		"rule_id", rule.ID, logging.KeyPipelineID, pipeline.ID, "result", result, "count", eval.Count, "reason", eval.Reason)
	return eval, nil
}

func (s *Service) evaluate(ctx context.Context, rule *model.ApprovalRule, pipeline *model.Pipeline) (*Evaluation, error) {
	targetRef := rule.TargetRef
	if targetRef == "" && pipeline.Project != nil {
		targetRef = pipeline.Project.DefaultBranch
	}
	target, err := s.stores.Pipelines.LatestSuccessfulPipeline(ctx, pipeline.ProjectID, targetRef)
	if errors.Is(err, store.ErrPipelineNotFound) {
		return &Evaluation{Violated: true, Reason: ReasonTargetPipelineMissing}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load target pipeline of %q: %w", targetRef, err)
	}

	scanTypes := ruleScanTypes(rule)
	severities := ruleSeverities(rule)

	removed, err := s.scanRemoved(ctx, scanTypes, pipeline, target)
	if err != nil {
		return nil, err
	}
	if removed {
		return &Evaluation{Violated: true, Reason: ReasonScanRemoved}, nil
	}

	var count int64
	if rule.CountsNewlyDetected() || rule.CountsNewDismissed() {
		n, err := s.countNewFindings(ctx, rule, scanTypes, severities, pipeline, target)
		if err != nil {
			return nil, err
		}
		count += n
	}

	if states := rule.PreExistingStates(); len(states) > 0 {
		n, err := s.stores.Vulnerabilities.CountVulnerabilities(ctx, pipeline.ProjectID, states, scanTypes, severities)
		if err != nil {
			return nil, fmt.Errorf("failed to count pre-existing vulnerabilities: %w", err)
		}
		count += n
	}

	eval := &Evaluation{Count: count}
	if count > int64(rule.VulnerabilitiesAllowed) {
		eval.Violated = true
		eval.Reason = ReasonTooManyFindings
	}
	return eval, nil
}

// scanRemoved reports whether a scan type in scope ran in the target
// pipeline but not in pipeline. An empty scope covers every scan type.
func (s *Service) scanRemoved(ctx context.Context, scanTypes []report.ReportType, pipeline, target *model.Pipeline) (bool, error) {
	current, err := s.stores.Scans.DistinctScanTypes(ctx, pipeline.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load scan types of pipeline %d: %w", pipeline.ID, err)
	}
	previous, err := s.stores.Scans.DistinctScanTypes(ctx, target.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load scan types of pipeline %d: %w", target.ID, err)
	}

	ran := make(map[report.ReportType]bool, len(current))
	for _, t := range current {
		ran[t] = true
	}
	for _, t := range previous {
		if len(scanTypes) > 0 && !containsType(scanTypes, t) {
			continue
		}
		if !ran[t] {
			return true, nil
		}
	}
	return false, nil
}

// countNewFindings counts the findings of pipeline that are absent from
// target and match the rule's "new" states.
func (s *Service) countNewFindings(ctx context.Context, rule *model.ApprovalRule, scanTypes []report.ReportType, severities []report.Severity, pipeline, target *model.Pipeline) (int64, error) {
	uuids, err := s.stores.Findings.PipelineFindingUUIDs(ctx, pipeline.ID, scanTypes, severities)
	if err != nil {
		return 0, fmt.Errorf("failed to load findings of pipeline %d: %w", pipeline.ID, err)
	}
	if len(uuids) == 0 {
		return 0, nil
	}
	targetUUIDs, err := s.stores.Findings.PipelineFindingUUIDs(ctx, target.ID, scanTypes, severities)
	if err != nil {
		return 0, fmt.Errorf("failed to load findings of pipeline %d: %w", target.ID, err)
	}

	onTarget := make(map[string]struct{}, len(targetUUIDs))
	for _, u := range targetUUIDs {
		onTarget[u] = struct{}{}
	}
	var newUUIDs []string
	for _, u := range uuids {
		if _, ok := onTarget[u]; !ok {
			newUUIDs = append(newUUIDs, u)
		}
	}
	if len(newUUIDs) == 0 {
		return 0, nil
	}

	existing, err := s.stores.Vulnerabilities.FindByUUIDs(ctx, pipeline.ProjectID, newUUIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to load existing vulnerabilities: %w", err)
	}
	byUUID := make(map[string]*model.Vulnerability, len(existing))
	for i := range existing {
		byUUID[existing[i].UUID] = &existing[i]
	}

	var count int64
	for _, u := range newUUIDs {
		vuln, ok := byUUID[u]
		switch {
		case !ok && rule.CountsNewlyDetected():
			count++
		case ok && vuln.Dismissed() && rule.CountsNewDismissed():
			count++
		}
	}
	return count, nil
}

// ruleScanTypes returns the rule's scanners as report types. Unknown names
// are ignored.
func ruleScanTypes(rule *model.ApprovalRule) []report.ReportType {
	var out []report.ReportType
	for _, s := range rule.Scanners {
		if t, err := report.ParseReportType(s); err == nil {
			out = append(out, t)
		}
	}
	return out
}

func ruleSeverities(rule *model.ApprovalRule) []report.Severity {
	var out []report.Severity
	for _, s := range rule.SeverityLevels {
		if sev, err := report.ParseSeverity(s); err == nil {
			out = append(out, sev)
		}
	}
	return out
}

func containsType(types []report.ReportType, t report.ReportType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}
