package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/scanstore/pkg/config"
)

// configurationShowCmd represents the configuration show command
var configurationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show configuration attributes and their sources",
	Long: `Show configuration attributes and their sources.

The values displayed by this command reflect the current state of the
configuration sources, i.e. the environment variables and the config file.
They may not reflect the values used by a running server.

Config file location: /etc/scanstore/config/scanstore.yml (or SCANSTORE_CONFIG_PATH)

Example:
  scanctl configuration show
  scanctl configuration show --output json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		return showConfiguration(cmd.OutOrStdout(), output)
	},
}

func init() {
	configurationCmd.AddCommand(configurationShowCmd)
	configurationShowCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}

func showConfiguration(w io.Writer, output string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	switch output {
	case "json":
		jsonOutput, err := cfg.FormatJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, jsonOutput)
		return err
	case "text":
		_, err = fmt.Fprint(w, cfg.FormatText())
		return err
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}
