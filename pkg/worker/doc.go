// Package worker runs the background jobs of scanstore.
//
// A Pool reads jobs from a buffered queue on a fixed number of goroutines.
// Jobs registers one handler per job kind:
//
//   - store_scans: store the security reports of a pipeline, then queue
//     the follow-up jobs below
//   - scan_secrets: send leaked tokens for revocation
//   - sync_approvals: evaluate the approval rules of the pipeline's ref
//   - ingest_vulnerabilities: turn default branch findings into
//     vulnerabilities
//   - purge_scans: purge stale scans and drop empty partitions
//
// # Usage
//
//	pool := worker.NewPool(cfg.WorkerCount, 100, logger)
//	worker.NewJobs(stores, cfg, pool, revoker, logger).Register(pool)
//	pool.Start(ctx)
//	defer pool.Stop()
//
//	err := pool.Enqueue(worker.Job{Kind: worker.KindStoreScans, PipelineID: id})
package worker
