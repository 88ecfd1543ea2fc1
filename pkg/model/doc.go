// Package model defines the database models for scanstore.
//
// # Core Models
//
//   - Project, Pipeline, Job: the CI context a report was produced in
//   - JobArtifact: an uploaded security report file
//   - Scan: the outcome of storing one report, with a status and info
//   - Finding: a security finding of a scan, stored in a partition
//   - Scanner: a project scoped analyzer
//   - Vulnerability: an existing vulnerability finding of a project
//   - ApprovalRule: a scan result policy rule
//
// # Database Schema
//
//   - projects, pipelines, ci_builds, ci_job_artifacts
//   - security_scans
//   - security_findings (PARTITION BY LIST (partition_number))
//   - security_finding_partitions
//   - vulnerability_scanners
//   - vulnerability_occurrences, vulnerability_finding_signatures
//   - approval_rules
//
// jsonb columns are encoded as text so they work with the simple query
// protocol.
package model
