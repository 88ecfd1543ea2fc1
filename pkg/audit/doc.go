// Package audit records security-relevant ingestion events.
//
// Events are written as RFC5424 syslog lines to stdout and, when
// AUDIT_DATABASE_URL is set, persisted to the messages table.
//
// # Event Types
//
//   - scan: a security scan was stored or failed to ingest
//   - purge: stale scans and their findings were purged
//   - revocation: leaked tokens were sent for revocation
//   - approval: an approval rule was evaluated for a pipeline
//   - api: an authenticated API request changed state
//
// # Usage
//
//	audit.Log(audit.ScanEvent{ScanID: scan.ID, ScanType: "sast", Success: true})
package audit
