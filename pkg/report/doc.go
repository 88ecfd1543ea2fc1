// Package report models a parsed security scanner report.
//
// A Report groups the findings produced by one analyzer artifact together with
// the scanners and identifiers they reference. The types in this package are
// in-memory only; persistence is handled by pkg/store.
//
// # Identity
//
// Every finding has three kinds of identity:
//
//   - Identifier fingerprints: SHA1 of "<external_type>:<external_id>".
//   - Location fingerprints: SHA1 of kind specific location data, such as
//     "<file>:<start_line>:<end_line>" for SAST.
//   - Signatures: optional tracking signatures emitted by the analyzer, each
//     with an algorithm priority (hash < location < scope_offset <
//     scope_offset_compressed < rule_value).
//
// The finding UUID is a UUIDv5 built from the report type, the primary
// identifier fingerprint, the location fingerprint and the project id. See
// VulnerabilityUUID.
//
// # Deduplication keys
//
// Finding.Keys returns the set of FindingKey values that identify a finding
// across analyzers. Two findings are duplicates when their key sets
// intersect. Type identifiers (CWE, WASC) never participate in keys since
// many unrelated findings share them.
//
// # Ordering
//
// Scanners are ordered by analyzer priority (see Scanner.Order). Reports
// from higher-priority analyzers are stored first so that their findings win
// deduplication. Findings themselves are presented by severity descending,
// then compare key.
package report
