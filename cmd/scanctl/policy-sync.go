package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// policySyncCmd represents the policy sync command
var policySyncCmd = &cobra.Command{
	Use:   "sync <pipeline-id>",
	Short: "Evaluate the approval rules of a pipeline",
	Long: `Evaluate the approval rules that apply to a pipeline's ref and update
their required approvals.

Example:
  scanctl policy sync 42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipelineID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid pipeline id %q", args[0])
		}

		stores, cfg, err := openStores()
		if err != nil {
			return err
		}
		ctx := context.Background()
		if _, err := stores.Pipelines.FindPipeline(ctx, pipelineID); err != nil {
			return err
		}

		_, jobs := newWorkers(stores, cfg, 1)
		return jobs.SyncApprovals(ctx, pipelineID)
	},
}

func init() {
	policyCmd.AddCommand(policySyncCmd)
}
