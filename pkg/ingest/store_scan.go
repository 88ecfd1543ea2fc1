package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/doodlesbykumbi/scanstore/pkg/audit"
	"github.com/doodlesbykumbi/scanstore/pkg/logging"
	"github.com/doodlesbykumbi/scanstore/pkg/metrics"
	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

// StoreGroupedScans stores the artifacts of one report type group of a
// pipeline. Artifacts are stored in primary scanner priority order; each
// StoreScan result decides whether the next one re-deduplicates.
//
// Only context cancellation is returned. Any other failure is logged and the
// group moves on to the next artifact.
func (s *Service) StoreGroupedScans(ctx context.Context, artifacts []*Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}

	for _, a := range artifacts {
		a.SecurityReport(s.parseOptions(a.Pipeline))
	}
	defer func() {
		for _, a := range artifacts {
			a.ClearSecurityReport()
		}
	}()

	ordered := make([]*Artifact, len(artifacts))
	copy(ordered, artifacts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].report.PrimaryScannerOrderTo(ordered[j].report) < 0
	})

	known := NewKnownKeys()
	deduplicate := false
	for _, a := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, err := s.StoreScan(ctx, a, known, deduplicate)
		if err != nil {
			metrics.IngestionErrorsTotal.WithLabelValues("store_scan").Inc()
			s.logger.Error("failed to store security scan",
				"artifact_id", a.ID, "job_id", a.JobID, logging.KeyScanType, a.FileType.String(), "error", err)
			continue
		}
		deduplicate = next
	}
	return nil
}

// StoreScan records the scan of one artifact and stores its findings. It
// returns whether the next artifact of the group must re-deduplicate its
// findings.
//
// An error is only returned when the scan row itself cannot be loaded or
// created.
func (s *Service) StoreScan(ctx context.Context, a *Artifact, known *KnownKeys, deduplicate bool) (bool, error) {
	rep := a.SecurityReport(s.parseOptions(a.Pipeline))
	scan := s.newScan(a, rep)

	created, err := s.stores.Scans.FindOrCreateScan(ctx, scan)
	if err != nil {
		return false, fmt.Errorf("failed to find or create %s scan for job %d: %w", a.FileType, a.JobID, err)
	}
	log := logging.Pipeline(s.logger, scan.ProjectID, scan.PipelineID).With(logging.Scan(scan.ID, scan.ScanType.String()))

	if a.retried() {
		scan.Latest = false
		if err := s.stores.Scans.SaveScan(ctx, scan); err != nil {
			return false, fmt.Errorf("failed to mark scan %d as not latest: %w", scan.ID, err)
		}
		log.Debug("skipping findings of retried job", "job_id", a.JobID)
		return deduplicate, nil
	}

	if scan.Status == model.ScanStatusJobFailed || scan.Status == model.ScanStatusReportError {
		metrics.ScansStoredTotal.WithLabelValues(scan.ScanType.String(), scan.Status.String()).Inc()
		s.auditScan(scan, 0, false, errorMessages(scan.ProcessingErrors()))
		log.Info("security scan not ingested", "status", scan.Status.String())
		return false, nil
	}

	stored, err := s.storeScanFindings(ctx, a, scan, rep, known, deduplicate || created)
	if err != nil {
		s.markFailed(ctx, scan, err)
		return false, nil
	}

	metrics.ScansStoredTotal.WithLabelValues(scan.ScanType.String(), scan.Status.String()).Inc()
	s.auditScan(scan, stored, true, "")
	return deduplicate || created, nil
}

// storeScanFindings runs the finding steps of StoreScan and returns the
// number of stored findings.
func (s *Service) storeScanFindings(ctx context.Context, a *Artifact, scan *model.Scan, rep *report.Report, known *KnownKeys, rededuplicate bool) (int, error) {
	if s.signaturesEnabled() {
		if err := s.OverrideUUIDs(ctx, scan.ProjectID, rep); err != nil {
			return 0, err
		}
	}

	unique := registerFindingKeys(rep, known)

	stored, err := s.storeFindings(ctx, scan, rep, unique)
	switch {
	case errors.Is(err, store.ErrFindingsAlreadyStored):
		if rededuplicate {
			if err := s.stores.Findings.MarkDeduplicated(ctx, scan, unique); err != nil {
				return 0, fmt.Errorf("failed to re-deduplicate findings of scan %d: %w", scan.ID, err)
			}
		}
	case err != nil:
		return 0, err
	}

	// A reused scan may still be created or preparation_failed.
	scan.Status = model.ScanStatusSucceeded
	if err := s.stores.Scans.SaveScan(ctx, scan); err != nil {
		return stored, fmt.Errorf("failed to mark scan %d as succeeded: %w", scan.ID, err)
	}
	return stored, nil
}

// registerFindingKeys returns the UUIDs of the findings whose keys were not
// known yet, merging their keys.
func registerFindingKeys(rep *report.Report, known *KnownKeys) []string {
	unique := make([]string, 0, len(rep.Findings))
	for _, f := range rep.Findings {
		if known.Register(f.Keys()) {
			unique = append(unique, f.UUID)
		}
	}
	return unique
}

func (s *Service) newScan(a *Artifact, rep *report.Report) *model.Scan {
	scan := &model.Scan{
		BuildID:  a.JobID,
		ScanType: a.FileType,
		Latest:   true,
		Status:   initialStatus(a, rep),
	}
	if p := a.Pipeline; p != nil {
		scan.PipelineID = p.ID
		scan.ProjectID = p.ProjectID
		scan.CreatedAt = p.CreatedAt
		scan.FindingsPartitionNumber = p.SecurityFindingsPartitionNumber
	}
	if scan.ProjectID == 0 {
		scan.ProjectID = a.ProjectID
	}
	scan.Info.Errors = rep.Errors
	if len(rep.Warnings) > 0 {
		scan.Info.Warnings = rep.Warnings
	}
	return scan
}

func initialStatus(a *Artifact, rep *report.Report) model.ScanStatus {
	switch {
	case !a.jobSucceeded():
		return model.ScanStatusJobFailed
	case rep.Errored():
		return model.ScanStatusReportError
	default:
		return model.ScanStatusCreated
	}
}

func (s *Service) markFailed(ctx context.Context, scan *model.Scan, cause error) {
	metrics.IngestionErrorsTotal.WithLabelValues("store_findings").Inc()
	s.logger.Error("ingestion failed for security scan",
		logging.Scan(scan.ID, scan.ScanType.String()), "error", cause)

	scan.Status = model.ScanStatusPreparationFailed
	scan.AddProcessingError(model.ScanIngestionError)
	if err := s.stores.Scans.SaveScan(ctx, scan); err != nil {
		s.logger.Error("failed to mark security scan as failed", logging.Scan(scan.ID, scan.ScanType.String()), "error", err)
	}

	metrics.ScansStoredTotal.WithLabelValues(scan.ScanType.String(), scan.Status.String()).Inc()
	s.auditScan(scan, 0, false, cause.Error())
}

func (s *Service) auditScan(scan *model.Scan, findings int, success bool, errMsg string) {
	audit.Log(audit.ScanEvent{
		ProjectID:    scan.ProjectID,
		PipelineID:   scan.PipelineID,
		BuildID:      scan.BuildID,
		ScanID:       scan.ID,
		ScanType:     scan.ScanType.String(),
		Status:       scan.Status.String(),
		Findings:     findings,
		Success:      success,
		ErrorMessage: errMsg,
	})
}

func errorMessages(errs []report.Error) string {
	var msg string
	for i, e := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += e.Type + ": " + e.Message
	}
	return msg
}
