package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/doodlesbykumbi/scanstore/pkg/logging"
	"github.com/doodlesbykumbi/scanstore/pkg/metrics"
)

// Kind names a background job.
type Kind string

const (
	KindStoreScans            Kind = "store_scans"
	KindScanSecrets           Kind = "scan_secrets"
	KindSyncApprovals         Kind = "sync_approvals"
	KindIngestVulnerabilities Kind = "ingest_vulnerabilities"
	KindPurgeScans            Kind = "purge_scans"
)

// Job is one unit of background work.
type Job struct {
	Kind       Kind
	PipelineID int64

	// Before is the purge cutoff of KindPurgeScans jobs. Zero means the
	// configured retention period.
	Before time.Time
}

func (j Job) String() string {
	if j.PipelineID != 0 {
		return fmt.Sprintf("%s(%d)", j.Kind, j.PipelineID)
	}
	return string(j.Kind)
}

// Handler runs a job.
type Handler func(ctx context.Context, job Job) error

var (
	ErrQueueFull      = errors.New("job queue is full")
	ErrPoolStopped    = errors.New("worker pool is stopped")
	ErrUnknownJobKind = errors.New("no handler for job kind")
)

// Pool runs jobs on a fixed number of goroutines reading from a buffered
// queue.
type Pool struct {
	workers int
	queue   chan Job
	logger  *slog.Logger

	mu       sync.RWMutex
	handlers map[Kind]Handler
	stopped  bool

	wg sync.WaitGroup
}

func NewPool(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		workers:  workers,
		queue:    make(chan Job, queueSize),
		logger:   logging.Component(logger, "worker"),
		handlers: make(map[Kind]Handler),
	}
}

// Handle registers the handler of a job kind, replacing any previous one.
func (p *Pool) Handle(kind Kind, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[kind] = h
}

func (p *Pool) handler(kind Kind) (Handler, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.handlers[kind]
	return h, ok
}

// Start launches the workers. They exit when ctx is cancelled or the pool
// is stopped.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.queue:
					if !ok {
						return
					}
					metrics.QueueDepth.Dec()
					if err := p.Run(ctx, job); err != nil {
						p.logger.Error("job failed", "job", job.String(), "error", err)
					}
				}
			}
		}()
	}
}

// Enqueue queues a job without blocking. Handlers enqueue follow-up jobs, so
// a full queue is reported instead of waited on.
func (p *Pool) Enqueue(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.queue <- job:
		metrics.QueueDepth.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// Run executes a job on the calling goroutine.
func (p *Pool) Run(ctx context.Context, job Job) error {
	h, ok := p.handler(job.Kind)
	if !ok {
		metrics.JobsTotal.WithLabelValues(string(job.Kind), "unknown").Inc()
		return fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
	}

	start := time.Now()
	err := h(ctx, job)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.JobsTotal.WithLabelValues(string(job.Kind), status).Inc()
	p.logger.Debug("job finished", "job", job.String(), "status", status, "duration", time.Since(start))
	return err
}

// Stop closes the queue and waits for the workers to drain it.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}
