package report

import (
	"fmt"

	"github.com/google/uuid"
)

// DefaultNamespace is the UUIDv5 namespace used when none is configured.
var DefaultNamespace = uuid.MustParse("a143e9e2-41b3-47bc-9a19-081d089229f4")

// VulnerabilityUUID derives the stable identity of a finding within a project.
func VulnerabilityUUID(namespace uuid.UUID, reportType ReportType, primaryIdentifierFingerprint, locationFingerprint string, projectID int64) string {
	name := fmt.Sprintf("%s-%s-%s-%d", reportType, primaryIdentifierFingerprint, locationFingerprint, projectID)
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// ComputeUUID sets f.UUID from its current identity. The plain location
// fingerprint is used even when signatures are enabled so that enabling
// signatures does not change existing UUIDs.
func (f *Finding) ComputeUUID(namespace uuid.UUID) {
	if f.Location == nil || len(f.Identifiers) == 0 {
		return
	}
	f.UUID = VulnerabilityUUID(namespace, f.ReportType, f.primaryIdentifierFingerprint(), f.Location.Fingerprint(), f.ProjectID)
}
