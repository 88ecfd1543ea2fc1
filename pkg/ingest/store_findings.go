package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/doodlesbykumbi/scanstore/pkg/metrics"
	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

// StoreFindings inserts the valid findings of rep into the scan's findings
// partition. Findings whose UUID is in deduplicatedUUIDs are stored with
// deduplicated=true. It returns store.ErrFindingsAlreadyStored when the scan
// already has findings. Remediation diffs are located in rep.Source.
func (s *Service) StoreFindings(ctx context.Context, scan *model.Scan, rep *report.Report, deduplicatedUUIDs []string) error {
	_, err := s.storeFindings(ctx, scan, rep, deduplicatedUUIDs)
	return err
}

// storeFindings returns the number of rows sent for insert.
func (s *Service) storeFindings(ctx context.Context, scan *model.Scan, rep *report.Report, deduplicatedUUIDs []string) (int, error) {
	has, err := s.stores.Findings.ScanHasFindings(ctx, scan)
	if err != nil {
		return 0, fmt.Errorf("failed to check findings of scan %d: %w", scan.ID, err)
	}
	if has {
		return 0, store.ErrFindingsAlreadyStored
	}

	deduplicated := make(map[string]bool, len(deduplicatedUUIDs))
	for _, u := range deduplicatedUUIDs {
		deduplicated[u] = true
	}

	scanners := make(map[string]*model.Scanner)
	seen := make(map[string]struct{}, len(rep.Findings))
	rows := make([]model.Finding, 0, len(rep.Findings))

	for _, f := range rep.Findings {
		if !f.Valid() {
			continue
		}
		if _, dup := seen[f.UUID]; dup {
			continue
		}
		seen[f.UUID] = struct{}{}

		scanner, err := s.projectScanner(ctx, scanners, scan.ProjectID, f.Scanner)
		if err != nil {
			return 0, err
		}

		row := model.Finding{
			ScanID:          scan.ID,
			ScannerID:       scanner.ID,
			PartitionNumber: scan.FindingsPartitionNumber,
			UUID:            f.UUID,
			Severity:        f.Severity,
			Deduplicated:    deduplicated[f.UUID],
			FindingData:     model.NewFindingData(f),
		}
		if f.OverriddenUUID != "" {
			overridden := f.OverriddenUUID
			row.OverriddenUUID = &overridden
		}
		row.FindingData.RemediationByteOffsets = remediationByteOffsets(rep.Source, f.Remediations)
		rows = append(rows, row)
	}

	if err := s.stores.Findings.InsertFindings(ctx, rows, s.cfg.FindingsBatchSize); err != nil {
		return 0, fmt.Errorf("failed to insert findings of scan %d: %w", scan.ID, err)
	}
	metrics.FindingsStoredTotal.WithLabelValues(scan.ScanType.String()).Add(float64(len(rows)))
	return len(rows), nil
}

func (s *Service) projectScanner(ctx context.Context, cache map[string]*model.Scanner, projectID int64, rs *report.Scanner) (*model.Scanner, error) {
	if cached, ok := cache[rs.ExternalID]; ok {
		return cached, nil
	}
	scanner := model.NewScanner(projectID, *rs)
	if err := s.stores.Scanners.FindOrCreateScanner(ctx, scanner); err != nil {
		return nil, fmt.Errorf("failed to store scanner %s: %w", rs.ExternalID, err)
	}
	cache[rs.ExternalID] = scanner
	return scanner, nil
}

// remediationByteOffsets locates the JSON encoded diff of every remediation in
// the raw report document. Diffs that cannot be found are skipped.
func remediationByteOffsets(raw []byte, remediations []report.Remediation) []model.ByteOffset {
	if len(raw) == 0 || len(remediations) == 0 {
		return nil
	}
	var offsets []model.ByteOffset
	for _, r := range remediations {
		if r.Diff == "" {
			continue
		}
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(r.Diff); err != nil {
			continue
		}
		needle := bytes.TrimRight(buf.Bytes(), "\n")
		if idx := bytes.Index(raw, needle); idx >= 0 {
			offsets = append(offsets, model.ByteOffset{StartByte: idx, EndByte: idx + len(needle)})
		}
	}
	return offsets
}
