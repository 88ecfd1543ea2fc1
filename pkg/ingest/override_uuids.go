package ingest

import (
	"context"
	"fmt"

	"github.com/doodlesbykumbi/scanstore/pkg/metrics"
	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
)

const overrideBatchSize = 100

// OverrideUUIDs gives report findings the UUID of the existing vulnerability
// they correspond to, matching by tracking signature first and by location
// second. The replaced UUID is kept as OverriddenUUID and can't be claimed
// by a later finding of the report.
func (s *Service) OverrideUUIDs(ctx context.Context, projectID int64, rep *report.Report) error {
	known := make(map[string]struct{}, len(rep.Findings))
	for _, f := range rep.Findings {
		known[f.UUID] = struct{}{}
	}

	for start := 0; start < len(rep.Findings); start += overrideBatchSize {
		end := start + overrideBatchSize
		if end > len(rep.Findings) {
			end = len(rep.Findings)
		}
		if err := s.overrideBatch(ctx, projectID, rep.Type, rep.Findings[start:end], known); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) overrideBatch(ctx context.Context, projectID int64, reportType report.ReportType, batch []*report.Finding, known map[string]struct{}) error {
	var fingerprints []string
	seen := make(map[string]struct{})
	for _, f := range batch {
		id := f.PrimaryIdentifier()
		if id == nil {
			continue
		}
		fp := id.Fingerprint()
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		fingerprints = append(fingerprints, fp)
	}
	if len(fingerprints) == 0 {
		return nil
	}

	existing, err := s.stores.Vulnerabilities.FindForOverride(ctx, projectID, reportType, fingerprints)
	if err != nil {
		return fmt.Errorf("failed to load existing vulnerabilities: %w", err)
	}

	byFingerprint := make(map[string][]*model.Vulnerability)
	for i := range existing {
		v := &existing[i]
		byFingerprint[v.PrimaryIdentifierFingerprint] = append(byFingerprint[v.PrimaryIdentifierFingerprint], v)
	}

	for _, f := range batch {
		id := f.PrimaryIdentifier()
		if id == nil {
			continue
		}
		candidates := sameScanner(byFingerprint[id.Fingerprint()], f.Scanner)
		match, kind := matchExisting(f, candidates, known)
		if match == nil {
			continue
		}

		// The replaced UUID stays known.
		f.OverriddenUUID = f.UUID
		f.UUID = match.UUID
		known[f.UUID] = struct{}{}
		metrics.UUIDOverridesTotal.WithLabelValues(kind).Inc()
	}
	return nil
}

func sameScanner(candidates []*model.Vulnerability, scanner *report.Scanner) []*model.Vulnerability {
	if scanner == nil {
		return nil
	}
	var out []*model.Vulnerability
	for _, v := range candidates {
		if v.Scanner != nil && v.Scanner.ExternalID == scanner.ExternalID {
			out = append(out, v)
		}
	}
	return out
}

// matchExisting returns the existing vulnerability f corresponds to and how
// it was matched. Candidates whose UUID is already claimed are skipped.
func matchExisting(f *report.Finding, candidates []*model.Vulnerability, known map[string]struct{}) (*model.Vulnerability, string) {
	available := func(v *model.Vulnerability) bool {
		_, claimed := known[v.UUID]
		return !claimed
	}

	for _, sig := range f.SignaturesByPriority() {
		sha := sig.SHA()
		for _, v := range candidates {
			if available(v) && v.HasSignature(sha) {
				return v, "signature"
			}
		}
	}

	if f.Location == nil {
		return nil, ""
	}
	fp := f.Location.Fingerprint()
	for _, v := range candidates {
		if available(v) && v.LocationFingerprint == fp {
			return v, "location"
		}
	}
	return nil, ""
}
