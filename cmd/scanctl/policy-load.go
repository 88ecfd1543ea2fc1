package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/scanstore/pkg/policy"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

// policyLoadCmd represents the policy load command
var policyLoadCmd = &cobra.Command{
	Use:   "load <project-id> <file>",
	Short: "Load a scan result policy file",
	Long: `Load a scan result policy YAML file into the approval rules of a project.

Every enabled scan_finding rule produces one approval rule per branch.
Rules are upserted by name and branch.

Example:
  scanctl policy load 7 policy.yml
  scanctl policy load 7 policy.yml --dry-run`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid project id %q", args[0])
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		stores, _, err := openStores()
		if err != nil {
			return err
		}
		ctx := context.Background()
		if _, err := stores.Pipelines.FindProject(ctx, projectID); err != nil {
			return err
		}

		rules, err := loadPolicyFile(ctx, stores.ApprovalRules, projectID, args[1], dryRun)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), rules)
	},
}

func init() {
	policyCmd.AddCommand(policyLoadCmd)
	policyLoadCmd.Flags().Bool("dry-run", false, "validate the policy without saving rules")
}

type loadedRule struct {
	Name              string   `json:"name"`
	Ref               string   `json:"ref"`
	Scanners          []string `json:"scanners"`
	ApprovalsRequired int      `json:"approvals_required"`
}

func loadPolicyFile(ctx context.Context, rules store.ApprovalRulesStore, projectID int64, filename string, dryRun bool) ([]loadedRule, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy file: %w", err)
	}
	defer func() { _ = file.Close() }()

	loaded, err := policy.NewLoader(rules, projectID).WithDryRun(dryRun).LoadFromReader(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}

	out := make([]loadedRule, 0, len(loaded))
	for _, r := range loaded {
		out = append(out, loadedRule{
			Name:              r.Name,
			Ref:               r.Ref,
			Scanners:          r.Scanners,
			ApprovalsRequired: r.ApprovalsRequired,
		})
	}
	logger.Info("policy loaded", "project_id", projectID, "rules", len(out), "dry_run", dryRun)
	return out, nil
}
