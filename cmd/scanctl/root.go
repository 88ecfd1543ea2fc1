package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/scanstore/pkg/logging"
)

// logger is installed by the root command before any subcommand runs.
var logger = slog.Default()

var rootCmd = &cobra.Command{
	Use:   "scanctl",
	Short: "Security report ingestion service",
	Long: `scanctl runs the scanstore API server and its maintenance tasks.

It stores CI security report artifacts as scans and findings, tracks
vulnerabilities of the default branch and evaluates scan result policies.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.BootstrapFromEnv(logging.BootstrapOptions{
			Command: cmd.CommandPath(),
			Writer:  cmd.ErrOrStderr(),
		})
		if err != nil {
			return fmt.Errorf("invalid logging configuration: %w", err)
		}
		logger = l
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
