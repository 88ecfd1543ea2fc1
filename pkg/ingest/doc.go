// Package ingest stores parsed security reports as security scans and
// findings.
//
// The reports of one pipeline are stored per report type group. Artifacts
// of a group are visited in analyzer priority order and share a KnownKeys
// set, so a finding already reported by a higher priority analyzer is stored
// with deduplicated=false.
//
// Failures while storing findings never escape a group: they are recorded on
// the scan as status preparation_failed plus a processing error.
package ingest
