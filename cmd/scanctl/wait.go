package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// waitCmd represents the wait command
var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the scanstore server to be ready",
	Long: `Wait for the scanstore server to be ready by polling its health endpoint.

This command will repeatedly check the server health until it responds
successfully or the maximum number of retries is reached.

Example:
  scanctl wait
  scanctl wait --port 3000 --retries 60`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		retries, _ := cmd.Flags().GetInt("retries")

		url := fmt.Sprintf("http://localhost:%d/health", port)
		if err := waitForServer(cmd.OutOrStdout(), url, retries, time.Second); err != nil {
			return fmt.Errorf("server did not become ready: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().IntP("port", "p", defaultPortInt(), "Server port to check")
	waitCmd.Flags().IntP("retries", "r", 90, "Number of retries")
}

func waitForServer(w io.Writer, url string, retries int, interval time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}

	_, _ = fmt.Fprintln(w, "Waiting for scanstore to be ready...")

	for i := 0; i < retries; i++ {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode < 300 {
				_, _ = fmt.Fprintln(w, "scanstore is ready!")
				return nil
			}
		}

		_, _ = fmt.Fprint(w, ".")
		time.Sleep(interval)
	}

	_, _ = fmt.Fprintln(w)
	return fmt.Errorf("not ready after %d attempts", retries)
}
