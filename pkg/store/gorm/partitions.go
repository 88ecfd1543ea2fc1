package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

var _ store.PartitionsStore = (*PartitionsStore)(nil)

// PartitionsStore implements store.PartitionsStore using GORM
type PartitionsStore struct {
	db *gorm.DB
}

// NewPartitionsStore creates a new PartitionsStore
func NewPartitionsStore(db *gorm.DB) *PartitionsStore {
	return &PartitionsStore{db: db}
}

func (s *PartitionsStore) ActivePartition(ctx context.Context) (int, error) {
	var n int
	err := s.db.WithContext(ctx).
		Raw("SELECT COALESCE(MAX(number), 1) FROM security_finding_partitions").
		Scan(&n).Error
	return n, err
}

func (s *PartitionsStore) EnsurePartition(ctx context.Context, n int) error {
	if n < 1 {
		return fmt.Errorf("invalid partition number %d", n)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s PARTITION OF security_findings FOR VALUES IN (%d)", model.PartitionTable(n), n)
		if err := tx.Exec(ddl).Error; err != nil {
			return err
		}
		return tx.Exec("INSERT INTO security_finding_partitions (number) VALUES (?) ON CONFLICT DO NOTHING", n).Error
	})
}

func (s *PartitionsStore) PartitionRowCount(ctx context.Context, n int) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Raw(fmt.Sprintf("SELECT COUNT(*) FROM %s", model.PartitionTable(n))).
		Scan(&count).Error
	return count, err
}

func (s *PartitionsStore) DroppablePartitions(ctx context.Context, active int) ([]int, error) {
	var numbers []int
	err := s.db.WithContext(ctx).Raw(
		`SELECT p.number FROM security_finding_partitions p
		WHERE p.number <> ?
		AND NOT EXISTS (SELECT 1 FROM security_scans s WHERE s.findings_partition_number = p.number AND s.status <> ?)
		ORDER BY p.number`,
		active, model.ScanStatusPurged,
	).Scan(&numbers).Error
	return numbers, err
}

func (s *PartitionsStore) DropPartition(ctx context.Context, n int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", model.PartitionTable(n))).Error; err != nil {
			return err
		}
		return tx.Exec("DELETE FROM security_finding_partitions WHERE number = ?", n).Error
	})
}
