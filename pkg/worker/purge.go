package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/doodlesbykumbi/scanstore/pkg/audit"
	"github.com/doodlesbykumbi/scanstore/pkg/metrics"
)

const purgeBatchSize = 1000

// PurgeResult summarizes one purge run.
type PurgeResult struct {
	Before            time.Time
	Scans             int64
	Findings          int64
	DroppedPartitions []int
}

// PurgeScans marks scans created before the cutoff purged, deletes their
// findings and drops the finding partitions that only hold purged scans.
// A zero before uses the configured retention period.
func (j *Jobs) PurgeScans(ctx context.Context, before time.Time) (*PurgeResult, error) {
	if before.IsZero() {
		before = j.now().Add(-j.cfg.RetentionPeriod())
	}
	res := &PurgeResult{Before: before}

	err := j.purge(ctx, res)
	event := audit.PurgeEvent{
		Before:     before,
		Scans:      res.Scans,
		Findings:   res.Findings,
		Partitions: res.DroppedPartitions,
		Success:    err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	audit.Log(event)
	if err != nil {
		return res, err
	}

	j.logger.Info("purged stale scans",
		"before", before, "scans", res.Scans, "findings", res.Findings, "partitions", res.DroppedPartitions)
	return res, nil
}

func (j *Jobs) purge(ctx context.Context, res *PurgeResult) error {
	for {
		n, err := j.stores.Scans.PurgeStaleScans(ctx, res.Before, purgeBatchSize)
		if err != nil {
			return fmt.Errorf("failed to purge scans: %w", err)
		}
		res.Scans += n
		metrics.ScansPurgedTotal.Add(float64(n))
		if n < purgeBatchSize {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	deleted, err := j.stores.Findings.DeletePurgedFindings(ctx, res.Before)
	if err != nil {
		return fmt.Errorf("failed to delete findings of purged scans: %w", err)
	}
	res.Findings = deleted

	active, err := j.stores.Partitions.ActivePartition(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active partition: %w", err)
	}
	droppable, err := j.stores.Partitions.DroppablePartitions(ctx, active)
	if err != nil {
		return fmt.Errorf("failed to list droppable partitions: %w", err)
	}
	for _, n := range droppable {
		// New pipelines write to the active partition.
		if n == active {
			continue
		}
		if err := j.stores.Partitions.DropPartition(ctx, n); err != nil {
			return fmt.Errorf("failed to drop partition %d: %w", n, err)
		}
		res.DroppedPartitions = append(res.DroppedPartitions, n)
	}
	return nil
}

// RotatePartition creates the next findings partition once the active one
// holds findings_partition_max_rows rows. It returns the partition new
// pipelines should use.
func (j *Jobs) RotatePartition(ctx context.Context) (int, error) {
	return RotatePartition(ctx, j.stores.Partitions, j.cfg.FindingsPartitionMaxRows)
}
