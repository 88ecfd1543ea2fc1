package store

import "context"

// PartitionsStore manages the security_findings partitions
type PartitionsStore interface {
	// ActivePartition returns the highest registered partition number.
	ActivePartition(ctx context.Context) (int, error)

	// EnsurePartition creates and registers partition n if needed.
	EnsurePartition(ctx context.Context, n int) error

	PartitionRowCount(ctx context.Context, n int) (int64, error)

	// DroppablePartitions returns the partitions other than active whose
	// scans are all purged.
	DroppablePartitions(ctx context.Context, active int) ([]int, error)

	DropPartition(ctx context.Context, n int) error
}
