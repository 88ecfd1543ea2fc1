package ingest

import (
	"context"
	"fmt"

	"github.com/doodlesbykumbi/scanstore/pkg/logging"
	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
)

// IngestVulnerabilities turns the stored findings of a default branch
// pipeline into vulnerabilities of its project. Vulnerabilities of the same
// scanners that the pipeline no longer reports are marked resolved on the
// default branch.
//
// Only report types that are licensed features are ingested. The pipeline's
// Project must be loaded.
func (s *Service) IngestVulnerabilities(ctx context.Context, pipeline *model.Pipeline) error {
	if !pipeline.OnDefaultBranch() {
		return nil
	}

	scanTypes, err := s.stores.Scans.DistinctScanTypes(ctx, pipeline.ID)
	if err != nil {
		return fmt.Errorf("failed to load scan types of pipeline %d: %w", pipeline.ID, err)
	}

	for _, scanType := range scanTypes {
		if !s.cfg.FeatureAvailable(scanType.String()) {
			continue
		}
		if err := s.ingestScanType(ctx, pipeline, scanType); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ingestScanType(ctx context.Context, pipeline *model.Pipeline, scanType report.ReportType) error {
	findings, err := s.stores.Findings.PipelineFindings(ctx, pipeline.ID, scanType)
	if err != nil {
		return fmt.Errorf("failed to load %s findings of pipeline %d: %w", scanType, pipeline.ID, err)
	}

	uuids := make([]string, 0, len(findings))
	for _, f := range findings {
		uuids = append(uuids, f.UUID)
	}
	existing, err := s.stores.Vulnerabilities.FindByUUIDs(ctx, pipeline.ProjectID, uuids)
	if err != nil {
		return fmt.Errorf("failed to load existing vulnerabilities: %w", err)
	}
	byUUID := make(map[string]*model.Vulnerability, len(existing))
	for i := range existing {
		byUUID[existing[i].UUID] = &existing[i]
	}

	var scannerIDs []int64
	seenScanners := make(map[int64]struct{})
	for i := range findings {
		f := &findings[i]
		if _, ok := seenScanners[f.ScannerID]; !ok {
			seenScanners[f.ScannerID] = struct{}{}
			scannerIDs = append(scannerIDs, f.ScannerID)
		}

		vuln := vulnerabilityFor(pipeline.ProjectID, scanType, f, byUUID[f.UUID])
		if err := s.stores.Vulnerabilities.SaveVulnerability(ctx, vuln); err != nil {
			return fmt.Errorf("failed to save vulnerability %s: %w", f.UUID, err)
		}
	}

	resolved, err := s.stores.Vulnerabilities.MarkResolvedOnDefaultBranch(ctx, pipeline.ProjectID, []report.ReportType{scanType}, scannerIDs, uuids)
	if err != nil {
		return fmt.Errorf("failed to resolve missing %s vulnerabilities: %w", scanType, err)
	}

	logging.Pipeline(s.logger, pipeline.ProjectID, pipeline.ID).Info("ingested vulnerabilities",
		logging.KeyScanType, scanType.String(), "count", len(findings), "resolved", resolved)
	return nil
}

// vulnerabilityFor builds the vulnerability row of a stored finding, updating
// existing when it is set.
func vulnerabilityFor(projectID int64, scanType report.ReportType, f *model.Finding, existing *model.Vulnerability) *model.Vulnerability {
	vuln := existing
	if vuln == nil {
		vuln = &model.Vulnerability{
			ProjectID:  projectID,
			UUID:       f.UUID,
			ReportType: scanType,
			State:      model.StateDetected,
		}
	}

	vuln.ScannerID = f.ScannerID
	vuln.Severity = f.Severity
	vuln.Name = f.FindingData.Name
	vuln.ResolvedOnDefaultBranch = false
	if id := f.FindingData.PrimaryIdentifier(); id != nil {
		vuln.PrimaryIdentifierFingerprint = id.Fingerprint()
	}

	if loc := f.FindingData.Location; loc != nil {
		fp := loc.Fingerprint()
		if existing != nil && existing.LocationFingerprint != "" && existing.LocationFingerprint != fp {
			previous := &report.Finding{Location: &existing.Location.Location}
			previous.UpdateLocation(loc)
			vuln.OldLocation = &model.LocationData{Location: *previous.OldLocation}
		}
		vuln.Location = model.LocationData{Location: *loc}
		vuln.LocationFingerprint = fp
	}

	vuln.Signatures = vuln.Signatures[:0]
	for _, sig := range f.FindingData.Signatures {
		if !sig.Valid() {
			continue
		}
		vuln.Signatures = append(vuln.Signatures, model.VulnerabilitySignature{
			AlgorithmType: sig.Priority(),
			SignatureSHA:  sig.SHA(),
		})
	}
	return vuln
}
