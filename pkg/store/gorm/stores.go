package gorm

import (
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

// NewStores wires every GORM store to db.
func NewStores(db *gorm.DB) *store.Stores {
	return &store.Stores{
		Pipelines:       NewPipelinesStore(db),
		Artifacts:       NewArtifactsStore(db),
		Scans:           NewScansStore(db),
		Findings:        NewFindingsStore(db),
		Scanners:        NewScannersStore(db),
		Vulnerabilities: NewVulnerabilitiesStore(db),
		Partitions:      NewPartitionsStore(db),
		ApprovalRules:   NewApprovalRulesStore(db),
		Health:          NewHealthStore(db),
	}
}

func notFound(err error, sentinel error) error {
	if err == gorm.ErrRecordNotFound {
		return sentinel
	}
	return err
}
