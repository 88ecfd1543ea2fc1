// Package metrics defines the Prometheus collectors of scanstore.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "scanstore"
)

var (
	// Ingestion Metrics
	ScansStoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_stored_total",
		Help:      "Count of security scans stored, by scan type and resulting status.",
	}, []string{"scan_type", "status"})

	FindingsStoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "findings_stored_total",
		Help:      "Number of security findings inserted.",
	}, []string{"scan_type"})

	UUIDOverridesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uuid_overrides_total",
		Help:      "Number of finding UUIDs replaced by an existing vulnerability UUID.",
	}, []string{"match"})

	IngestionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingestion_errors_total",
		Help:      "Count of ingestion failures.",
	}, []string{"stage"})

	IngestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ingest_duration_seconds",
		Help:      "Time taken to store the security reports of a pipeline.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})

	// Worker Metrics
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Count of background jobs run.",
	}, []string{"kind", "status"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Number of background jobs waiting for a worker.",
	})

	// Downstream Metrics
	TokensRevokedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_revoked_total",
		Help:      "Number of leaked tokens sent for revocation.",
	}, []string{"status"})

	ApprovalRulesEvaluatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "approval_rules_evaluated_total",
		Help:      "Count of scan result policy rule evaluations.",
	}, []string{"result"})

	ScansPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_purged_total",
		Help:      "Number of stale scans marked purged.",
	})
)
