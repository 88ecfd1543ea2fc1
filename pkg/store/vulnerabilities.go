package store

import (
	"context"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
)

// VulnerabilitiesStore abstracts existing vulnerability finding storage
type VulnerabilitiesStore interface {
	// FindForOverride returns the project's vulnerabilities of a report type
	// whose primary identifier fingerprint is in fingerprints, with scanners
	// and signatures loaded.
	FindForOverride(ctx context.Context, projectID int64, reportType report.ReportType, fingerprints []string) ([]model.Vulnerability, error)

	// FindByUUIDs returns the project's vulnerabilities with the given UUIDs.
	FindByUUIDs(ctx context.Context, projectID int64, uuids []string) ([]model.Vulnerability, error)

	// SaveVulnerability upserts by UUID and replaces the stored signatures.
	SaveVulnerability(ctx context.Context, vuln *model.Vulnerability) error

	// MarkResolvedOnDefaultBranch flags the project's vulnerabilities of the
	// given report types and scanners that are not in present.
	MarkResolvedOnDefaultBranch(ctx context.Context, projectID int64, reportTypes []report.ReportType, scannerIDs []int64, present []string) (int64, error)

	// CountVulnerabilities counts the project's vulnerabilities in states.
	// Empty report types or severities don't filter.
	CountVulnerabilities(ctx context.Context, projectID int64, states []string, reportTypes []report.ReportType, severities []report.Severity) (int64, error)
}
