package store

// Stores bundles every store a service needs.
type Stores struct {
	Pipelines       PipelinesStore
	Artifacts       ArtifactsStore
	Scans           ScansStore
	Findings        FindingsStore
	Scanners        ScannersStore
	Vulnerabilities VulnerabilitiesStore
	Partitions      PartitionsStore
	ApprovalRules   ApprovalRulesStore
	Health          HealthStore
}
