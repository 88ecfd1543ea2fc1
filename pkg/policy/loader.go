package policy

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

const (
	RuleTypeScanFinding       = "scan_finding"
	ActionTypeRequireApproval = "require_approval"
)

// Document is a scan result policy file.
type Document struct {
	ScanResultPolicies []ScanResultPolicy `yaml:"scan_result_policies"`
}

type ScanResultPolicy struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Enabled     bool     `yaml:"enabled"`
	Rules       []Rule   `yaml:"rules"`
	Actions     []Action `yaml:"actions"`
}

type Rule struct {
	Type                   string   `yaml:"type"`
	Branches               []string `yaml:"branches"`
	TargetBranch           string   `yaml:"target_branch,omitempty"`
	Scanners               []string `yaml:"scanners"`
	VulnerabilitiesAllowed int      `yaml:"vulnerabilities_allowed"`
	SeverityLevels         []string `yaml:"severity_levels"`
	VulnerabilityStates    []string `yaml:"vulnerability_states"`
}

type Action struct {
	Type              string `yaml:"type"`
	ApprovalsRequired int    `yaml:"approvals_required"`
}

var knownStates = map[string]bool{
	model.StateNewlyDetected:  true,
	model.StateNewNeedsTriage: true,
	model.StateNewDismissed:   true,
	model.StateDetected:       true,
	model.StateConfirmed:      true,
	model.StateResolved:       true,
	model.StateDismissed:      true,
}

// LoadPolicies reads a policy document and returns one approval rule per
// enabled scan_finding rule and branch.
func LoadPolicies(r io.Reader) ([]model.ApprovalRule, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	return doc.ApprovalRules()
}

// ApprovalRules validates the document and converts it into approval rules.
// Rules are named after their policy, with the rule index appended when a
// policy has more than one rule.
func (d Document) ApprovalRules() ([]model.ApprovalRule, error) {
	var rules []model.ApprovalRule
	for _, p := range d.ScanResultPolicies {
		if p.Name == "" {
			return nil, errors.New("scan result policy must have a name")
		}
		if !p.Enabled {
			continue
		}

		approvals := 0
		for _, a := range p.Actions {
			if a.Type != ActionTypeRequireApproval {
				continue
			}
			if a.ApprovalsRequired < 0 {
				return nil, fmt.Errorf("policy %q: approvals_required must not be negative", p.Name)
			}
			approvals = a.ApprovalsRequired
		}

		for i, rule := range p.Rules {
			if rule.Type != RuleTypeScanFinding {
				continue
			}
			if err := rule.validate(); err != nil {
				return nil, fmt.Errorf("policy %q rule %d: %w", p.Name, i, err)
			}

			name := p.Name
			if len(p.Rules) > 1 {
				name = fmt.Sprintf("%s %d", p.Name, i+1)
			}
			for _, branch := range rule.Branches {
				rules = append(rules, model.ApprovalRule{
					Name:                      name,
					Ref:                       branch,
					TargetRef:                 rule.TargetBranch,
					Scanners:                  rule.Scanners,
					SeverityLevels:            rule.SeverityLevels,
					VulnerabilityStates:       rule.VulnerabilityStates,
					VulnerabilitiesAllowed:    rule.VulnerabilitiesAllowed,
					ApprovalsRequired:         approvals,
					OriginalApprovalsRequired: approvals,
				})
			}
		}
	}
	return rules, nil
}

func (r Rule) validate() error {
	if len(r.Branches) == 0 {
		return errors.New("branches must not be empty")
	}
	if r.VulnerabilitiesAllowed < 0 {
		return errors.New("vulnerabilities_allowed must not be negative")
	}
	for _, s := range r.Scanners {
		if _, err := report.ParseReportType(s); err != nil {
			return fmt.Errorf("%w: %s", store.ErrInvalidReportType, s)
		}
	}
	for _, s := range r.SeverityLevels {
		if _, err := report.ParseSeverity(s); err != nil {
			return err
		}
	}
	for _, s := range r.VulnerabilityStates {
		if !knownStates[s] {
			return fmt.Errorf("unknown vulnerability state %q", s)
		}
	}
	return nil
}

// Loader stores the approval rules of a policy document for one project.
type Loader struct {
	store     store.ApprovalRulesStore
	projectID int64
	dryRun    bool
}

func NewLoader(s store.ApprovalRulesStore, projectID int64) *Loader {
	return &Loader{store: s, projectID: projectID}
}

// WithDryRun sets whether to validate only without saving rules.
func (l *Loader) WithDryRun(dryRun bool) *Loader {
	l.dryRun = dryRun
	return l
}

// LoadFromReader parses the policy and saves its rules. It returns the rules
// that were saved, or would be in a dry run.
func (l *Loader) LoadFromReader(ctx context.Context, r io.Reader) ([]model.ApprovalRule, error) {
	rules, err := LoadPolicies(r)
	if err != nil {
		return nil, err
	}
	for i := range rules {
		rules[i].ProjectID = l.projectID
	}
	if l.dryRun {
		return rules, nil
	}
	for i := range rules {
		if err := l.store.SaveApprovalRule(ctx, &rules[i]); err != nil {
			return nil, fmt.Errorf("failed to save approval rule %q: %w", rules[i].Name, err)
		}
	}
	return rules, nil
}
