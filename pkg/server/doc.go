// Package server provides the HTTP server for the scanstore API.
//
// It uses gorilla/mux for routing, gorilla/handlers for access logs and a
// JWT bearer middleware for authentication.
//
// # Server Setup
//
//	srv := server.NewServer(stores, cfg, pool, "0.0.0.0", "8080", logger)
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Endpoints
//
// API endpoints are registered via the endpoints subpackage:
//
//   - / and /health - status and database connectivity
//   - /metrics - Prometheus metrics
//   - /projects/{project_id}/pipelines - pipeline creation
//   - /pipelines/{pipeline_id}/jobs - job creation
//   - /jobs/{job_id}/artifacts/{report_type} - report upload
//   - /pipelines/{pipeline_id}/security_reports - ingestion trigger
//   - /pipelines/{pipeline_id}/security_scans - scan listing
//   - /pipelines/{pipeline_id}/security_findings - finding listing
//   - /projects/{project_id}/approval_rules - approval rule listing
package server
