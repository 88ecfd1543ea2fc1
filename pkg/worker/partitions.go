package worker

import (
	"context"
	"fmt"

	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

// RotatePartition returns the active findings partition, first creating the
// next one when the active partition holds at least maxRows rows.
func RotatePartition(ctx context.Context, partitions store.PartitionsStore, maxRows int64) (int, error) {
	active, err := partitions.ActivePartition(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load active partition: %w", err)
	}
	if maxRows <= 0 {
		return active, nil
	}

	rows, err := partitions.PartitionRowCount(ctx, active)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows of partition %d: %w", active, err)
	}
	if rows < maxRows {
		return active, nil
	}

	next := active + 1
	if err := partitions.EnsurePartition(ctx, next); err != nil {
		return 0, fmt.Errorf("failed to create partition %d: %w", next, err)
	}
	return next, nil
}
