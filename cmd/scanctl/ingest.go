package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/scanstore/pkg/store"
	"github.com/doodlesbykumbi/scanstore/pkg/worker"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <pipeline-id>",
	Short: "Store the security reports of a pipeline",
	Long: `Store the security report artifacts of a pipeline as scans and findings.

The store job runs in the foreground. Follow-up jobs it schedules (secret
revocation, approval sync and vulnerability ingestion) finish before the
command exits.

Example:
  scanctl ingest 42`,
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

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if _, err := stores.Pipelines.FindPipeline(ctx, pipelineID); err != nil {
			return err
		}

		pool, _ := newWorkers(stores, cfg, 0)
		pool.Start(ctx)
		err = pool.Run(ctx, worker.Job{Kind: worker.KindStoreScans, PipelineID: pipelineID})
		pool.Stop()
		if err != nil {
			return err
		}

		return printScans(ctx, cmd.OutOrStdout(), stores.Scans, pipelineID)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func printScans(ctx context.Context, w io.Writer, scans store.ScansStore, pipelineID int64) error {
	rows, err := scans.ListScans(ctx, store.ScanFilter{PipelineIDs: []int64{pipelineID}, LatestOnly: true})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		_, _ = fmt.Fprintf(w, "Pipeline %d has no security scans\n", pipelineID)
		return nil
	}
	for _, scan := range rows {
		_, _ = fmt.Fprintf(w, "%-24s build=%-8d %s", scan.ScanType, scan.BuildID, scan.Status)
		for _, e := range scan.ProcessingErrors() {
			_, _ = fmt.Fprintf(w, " [%s: %s]", e.Type, e.Message)
		}
		_, _ = fmt.Fprintln(w)
	}
	return nil
}
