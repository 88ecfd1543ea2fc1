package main

import (
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/report/merge"
)

// reportMergeCmd represents the report merge command
var reportMergeCmd = &cobra.Command{
	Use:   "merge <file>...",
	Short: "Merge security reports of one type",
	Long: `Merge several security reports of the same type and print the
deduplicated findings. Findings of higher priority analyzers win.

Example:
  scanctl report merge semgrep.json gosec.json --type sast`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typeFlag, _ := cmd.Flags().GetString("type")
		projectID, _ := cmd.Flags().GetInt64("project-id")

		reports := make([]*report.Report, 0, len(args))
		for _, path := range args {
			rep, err := parseReportFile(path, typeFlag, projectID)
			if err != nil {
				return err
			}
			reports = append(reports, rep)
		}
		return writeJSON(cmd.OutOrStdout(), summarize(merge.Reports(reports...)))
	},
}

func init() {
	reportCmd.AddCommand(reportMergeCmd)
	reportMergeCmd.Flags().StringP("type", "t", "", "report type (default from the file names)")
	reportMergeCmd.Flags().Int64("project-id", 0, "project id used for finding UUIDs")
}
