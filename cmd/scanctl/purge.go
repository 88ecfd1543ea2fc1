package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// purgeCmd represents the purge command
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Purge stale security scans and their findings",
	Long: `Mark security scans older than the retention period as purged, delete
their findings and drop findings partitions that no longer hold live data.

Without --before the configured scan_retention_days is used.

Example:
  scanctl purge
  scanctl purge --before 720h`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("before")

		stores, cfg, err := openStores()
		if err != nil {
			return err
		}
		_, jobs := newWorkers(stores, cfg, 1)

		var before time.Time
		if olderThan > 0 {
			before = time.Now().Add(-olderThan)
		}

		res, err := jobs.PurgeScans(context.Background(), before)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Purged %d scan(s) and %d finding(s) created before %s, dropped %d partition(s)\n",
			res.Scans, res.Findings, res.Before.Format(time.RFC3339), len(res.DroppedPartitions))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
	purgeCmd.Flags().Duration("before", 0, "purge scans older than this duration (default: retention period)")
}
