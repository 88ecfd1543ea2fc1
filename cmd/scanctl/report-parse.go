package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/scanstore/pkg/config"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/report/parser"
)

// reportParseCmd represents the report parse command
var reportParseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a security report and print its findings",
	Long: `Parse a security report file and print a JSON summary of its
findings, errors and warnings.

The report type is read from --type, or from a gl-<type>-report.json file name.

Example:
  scanctl report parse gl-sast-report.json
  scanctl report parse out.json --type dependency_scanning --project-id 7`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typeFlag, _ := cmd.Flags().GetString("type")
		projectID, _ := cmd.Flags().GetInt64("project-id")

		rep, err := parseReportFile(args[0], typeFlag, projectID)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), summarize(rep))
	},
}

func init() {
	reportCmd.AddCommand(reportParseCmd)
	reportParseCmd.Flags().StringP("type", "t", "", "report type (default from the file name)")
	reportParseCmd.Flags().Int64("project-id", 0, "project id used for finding UUIDs")
}

func parseOptions(projectID int64) parser.Options {
	cfg := config.Get()
	return parser.Options{
		ProjectID:         projectID,
		Namespace:         cfg.Namespace(),
		SignaturesEnabled: cfg.FeatureAvailable(config.FeatureFindingSignatures),
	}
}

func parseReportFile(path, typeFlag string, projectID int64) (*report.Report, error) {
	reportType, err := resolveReportType(typeFlag, path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	defer func() { _ = f.Close() }()

	return parser.Parse(f, reportType, parseOptions(projectID))
}
