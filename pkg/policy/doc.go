// Package policy evaluates scan result policies.
//
// A scan result policy is stored as one approval rule per branch. After the
// security reports of a pipeline are stored, every rule of the pipeline's
// ref is evaluated against the latest successful pipeline of the rule's
// target ref. A rule that is not violated no longer requires approvals.
//
// # Policy Format
//
//	scan_result_policies:
//	  - name: Critical SAST findings
//	    enabled: true
//	    rules:
//	      - type: scan_finding
//	        branches: [main]
//	        scanners: [sast, secret_detection]
//	        vulnerabilities_allowed: 0
//	        severity_levels: [critical, high]
//	        vulnerability_states: [newly_detected]
//	    actions:
//	      - type: require_approval
//	        approvals_required: 2
//
// # Loading Policies
//
//	rules, err := policy.NewLoader(stores.ApprovalRules, projectID).
//		WithDryRun(dryRun).
//		LoadFromReader(ctx, file)
package policy
