// Package store provides storage abstractions for scanstore.
//
// The interfaces decouple ingestion, policies, workers and the HTTP API from
// the database implementation, so each can be tested with mocks.
//
// # Available Stores
//
//   - PipelinesStore: projects, pipelines and jobs
//   - ArtifactsStore: uploaded security report artifacts
//   - ScansStore: security scans, their statuses and purging
//   - FindingsStore: partitioned security findings
//   - ScannersStore: project scanners
//   - VulnerabilitiesStore: existing vulnerability findings
//   - PartitionsStore: security_findings partition management
//   - ApprovalRulesStore: scan result policy rules
//   - HealthStore: database connectivity
//
// # Usage
//
//	stores := gorm.NewStores(db)
//	scan, err := stores.Scans.FindScan(ctx, id)
//	if errors.Is(err, store.ErrScanNotFound) {
//	    // Handle not found
//	}
package store
