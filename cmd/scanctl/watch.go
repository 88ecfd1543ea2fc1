package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
	"github.com/doodlesbykumbi/scanstore/pkg/worker"
)

// watchSettle is how long a report file must stay unchanged before it is
// uploaded.
const watchSettle = 500 * time.Millisecond

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a directory and ingest new security reports",
	Long: `Watch a directory for gl-<type>-report.json files. Every new or
modified report is uploaded as the artifact of a job of the pipeline and the
pipeline's reports are ingested again.

Example:
  scanctl watch ./reports --pipeline 42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipelineID, _ := cmd.Flags().GetInt64("pipeline")
		if pipelineID <= 0 {
			return fmt.Errorf("--pipeline is required")
		}

		stores, cfg, err := openStores()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, _ := newWorkers(stores, cfg, 0)
		pool.Start(ctx)
		defer pool.Stop()

		rw := &reportWatcher{
			stores:     stores,
			pipelineID: pipelineID,
			out:        cmd.OutOrStdout(),
			ingest: func(ctx context.Context, pipelineID int64) error {
				return pool.Run(ctx, worker.Job{Kind: worker.KindStoreScans, PipelineID: pipelineID})
			},
		}
		return rw.watch(ctx, args[0])
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Int64("pipeline", 0, "pipeline the reports belong to")
}

type reportWatcher struct {
	stores     *store.Stores
	pipelineID int64
	out        io.Writer
	ingest     func(ctx context.Context, pipelineID int64) error

	mu      sync.Mutex
	uploads map[string]watchedUpload
}

// watchedUpload is the last upload of a report type.
type watchedUpload struct {
	jobID int64
	sum   [sha256.Size]byte
}

func (rw *reportWatcher) watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	_, _ = fmt.Fprintf(rw.out, "Watching %s for security reports (pipeline %d)\n", dir, rw.pipelineID)

	ready := make(chan string)
	var timersMu sync.Mutex
	timers := make(map[string]*time.Timer)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if _, ok := reportTypeFromFilename(event.Name); !ok {
				continue
			}
			name := event.Name
			timersMu.Lock()
			if t, ok := timers[name]; ok {
				t.Reset(watchSettle)
			} else {
				timers[name] = time.AfterFunc(watchSettle, func() {
					timersMu.Lock()
					delete(timers, name)
					timersMu.Unlock()
					select {
					case ready <- name:
					case <-ctx.Done():
					}
				})
			}
			timersMu.Unlock()
		case path := <-ready:
			if err := rw.handle(ctx, path); err != nil {
				logger.Error("failed to ingest report", "path", path, "error", err)
				continue
			}
			_, _ = fmt.Fprintf(rw.out, "[%s] Ingested %s\n", time.Now().Format(time.RFC3339), path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		case <-ctx.Done():
			_, _ = fmt.Fprintln(rw.out, "Shutting down...")
			return nil
		}
	}
}

// handle uploads one report file and ingests the pipeline. Every new version
// of a file is uploaded under a fresh synthetic job and the previous job of
// that report type is marked retried, so its scan stops being the latest one.
// Rewrites that leave the content unchanged are ignored.
func (rw *reportWatcher) handle(ctx context.Context, path string) error {
	reportType, ok := reportTypeFromFilename(path)
	if !ok {
		return fmt.Errorf("%s is not a security report file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}
	sum := sha256.Sum256(data)

	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.uploads == nil {
		rw.uploads = make(map[string]watchedUpload)
	}
	prev, seen := rw.uploads[reportType.String()]
	if seen && prev.sum == sum {
		return nil
	}

	pipeline, err := rw.stores.Pipelines.FindPipeline(ctx, rw.pipelineID)
	if err != nil {
		return err
	}

	job := &model.Job{
		PipelineID: pipeline.ID,
		ProjectID:  pipeline.ProjectID,
		Name:       "watch:" + reportType.String(),
		Status:     model.StatusSuccess,
	}
	if err := rw.stores.Pipelines.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	artifact := &model.JobArtifact{
		JobID:     job.ID,
		ProjectID: pipeline.ProjectID,
		FileType:  reportType,
		File:      data,
	}
	if err := rw.stores.Artifacts.SaveArtifact(ctx, artifact); err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}

	if seen {
		if err := rw.stores.Pipelines.MarkJobRetried(ctx, prev.jobID); err != nil {
			return fmt.Errorf("failed to retire job %d: %w", prev.jobID, err)
		}
	}
	rw.uploads[reportType.String()] = watchedUpload{jobID: job.ID, sum: sum}

	return rw.ingest(ctx, pipeline.ID)
}
