package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/doodlesbykumbi/scanstore/pkg/config"
	"github.com/doodlesbykumbi/scanstore/pkg/ingest"
	"github.com/doodlesbykumbi/scanstore/pkg/logging"
	"github.com/doodlesbykumbi/scanstore/pkg/metrics"
	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/policy"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/revocation"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

// Enqueuer queues follow-up jobs. *Pool implements it.
type Enqueuer interface {
	Enqueue(job Job) error
}

// Jobs holds the handlers of every job kind.
type Jobs struct {
	stores     *store.Stores
	cfg        *config.ScanstoreConfig
	ingest     *ingest.Service
	policy     *policy.Service
	revocation *revocation.Service
	enqueuer   Enqueuer
	logger     *slog.Logger
	now        func() time.Time
}

// NewJobs wires the job handlers. revoker may be nil when token revocation
// is disabled.
func NewJobs(stores *store.Stores, cfg *config.ScanstoreConfig, enqueuer Enqueuer, revoker revocation.Revoker, logger *slog.Logger) *Jobs {
	if cfg == nil {
		cfg = config.Get()
	}
	j := &Jobs{
		stores:   stores,
		cfg:      cfg,
		ingest:   ingest.NewService(stores, cfg, logger),
		policy:   policy.NewService(stores, logger),
		enqueuer: enqueuer,
		logger:   logging.Component(logger, "jobs"),
		now:      time.Now,
	}
	if revoker != nil {
		j.revocation = revocation.NewService(stores.Findings, revoker, logger)
	}
	return j
}

// Register installs the handlers on p.
func (j *Jobs) Register(p *Pool) {
	p.Handle(KindStoreScans, func(ctx context.Context, job Job) error {
		return j.StoreScans(ctx, job.PipelineID)
	})
	p.Handle(KindScanSecrets, func(ctx context.Context, job Job) error {
		return j.ScanSecrets(ctx, job.PipelineID)
	})
	p.Handle(KindSyncApprovals, func(ctx context.Context, job Job) error {
		return j.SyncApprovals(ctx, job.PipelineID)
	})
	p.Handle(KindIngestVulnerabilities, func(ctx context.Context, job Job) error {
		return j.IngestVulnerabilities(ctx, job.PipelineID)
	})
	p.Handle(KindPurgeScans, func(ctx context.Context, job Job) error {
		_, err := j.PurgeScans(ctx, job.Before)
		return err
	})
}

// loadPipeline returns nil without error when the pipeline is gone.
func (j *Jobs) loadPipeline(ctx context.Context, id int64) (*model.Pipeline, error) {
	pipeline, err := j.stores.Pipelines.FindPipeline(ctx, id)
	if errors.Is(err, store.ErrPipelineNotFound) {
		j.logger.Info("pipeline not found, skipping", logging.KeyPipelineID, id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline %d: %w", id, err)
	}
	return pipeline, nil
}

// StoreScans stores the security reports of a pipeline, one concurrent
// group per report type, then queues the downstream jobs.
func (j *Jobs) StoreScans(ctx context.Context, pipelineID int64) error {
	pipeline, err := j.loadPipeline(ctx, pipelineID)
	if err != nil || pipeline == nil {
		return err
	}

	start := time.Now()
	defer func() {
		metrics.IngestDuration.WithLabelValues(string(KindStoreScans)).Observe(time.Since(start).Seconds())
	}()

	rows, err := j.stores.Artifacts.SecurityReportArtifacts(ctx, pipeline.ID)
	if err != nil {
		return fmt.Errorf("failed to load artifacts of pipeline %d: %w", pipeline.ID, err)
	}

	groups, order := groupArtifacts(pipeline, rows)
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range order {
		artifacts := groups[t]
		g.Go(func() error {
			return j.ingest.StoreGroupedScans(gctx, artifacts)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return j.enqueueDownstream(ctx, pipeline)
}

func groupArtifacts(pipeline *model.Pipeline, rows []model.JobArtifact) (map[report.ReportType][]*ingest.Artifact, []report.ReportType) {
	groups := make(map[report.ReportType][]*ingest.Artifact)
	var order []report.ReportType
	for i := range rows {
		t := rows[i].FileType
		if _, ok := groups[t]; !ok {
			order = append(order, t)
		}
		groups[t] = append(groups[t], ingest.NewArtifact(&rows[i], pipeline))
	}
	return groups, order
}

func (j *Jobs) enqueueDownstream(ctx context.Context, pipeline *model.Pipeline) error {
	var jobs []Job

	revoke, err := j.shouldScanSecrets(ctx, pipeline)
	if err != nil {
		return err
	}
	if revoke {
		jobs = append(jobs, Job{Kind: KindScanSecrets, PipelineID: pipeline.ID})
	}

	jobs = append(jobs, Job{Kind: KindSyncApprovals, PipelineID: pipeline.ID})

	if j.cfg.SecurityReportFeatureAvailable() && pipeline.OnDefaultBranch() {
		jobs = append(jobs, Job{Kind: KindIngestVulnerabilities, PipelineID: pipeline.ID})
	}

	for _, job := range jobs {
		if err := j.enqueuer.Enqueue(job); err != nil {
			return fmt.Errorf("failed to enqueue %s: %w", job, err)
		}
	}
	return nil
}

func (j *Jobs) shouldScanSecrets(ctx context.Context, pipeline *model.Pipeline) (bool, error) {
	if !j.cfg.TokenRevocationEnabled || j.revocation == nil {
		return false, nil
	}
	if pipeline.Project == nil || !pipeline.Project.Public() {
		return false, nil
	}
	uuids, err := j.stores.Findings.PipelineFindingUUIDs(ctx, pipeline.ID, []report.ReportType{report.ReportTypeSecretDetection}, nil)
	if err != nil {
		return false, fmt.Errorf("failed to load secret detection findings of pipeline %d: %w", pipeline.ID, err)
	}
	return len(uuids) > 0, nil
}

func (j *Jobs) ScanSecrets(ctx context.Context, pipelineID int64) error {
	if j.revocation == nil {
		return nil
	}
	pipeline, err := j.loadPipeline(ctx, pipelineID)
	if err != nil || pipeline == nil {
		return err
	}
	_, err = j.revocation.ScanSecrets(ctx, pipeline)
	return err
}

func (j *Jobs) SyncApprovals(ctx context.Context, pipelineID int64) error {
	pipeline, err := j.loadPipeline(ctx, pipelineID)
	if err != nil || pipeline == nil {
		return err
	}
	return j.policy.SyncApprovals(ctx, pipeline)
}

func (j *Jobs) IngestVulnerabilities(ctx context.Context, pipelineID int64) error {
	pipeline, err := j.loadPipeline(ctx, pipelineID)
	if err != nil || pipeline == nil {
		return err
	}
	return j.ingest.IngestVulnerabilities(ctx, pipeline)
}
