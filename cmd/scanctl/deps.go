package main

import (
	"fmt"

	"github.com/doodlesbykumbi/scanstore/pkg/config"
	"github.com/doodlesbykumbi/scanstore/pkg/db"
	"github.com/doodlesbykumbi/scanstore/pkg/revocation"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
	gormstore "github.com/doodlesbykumbi/scanstore/pkg/store/gorm"
	"github.com/doodlesbykumbi/scanstore/pkg/worker"
)

// loadConfig loads and validates the configuration and installs it as the
// process-wide config.
func loadConfig() (*config.ScanstoreConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	config.Set(cfg)
	return cfg, nil
}

func openStores() (*store.Stores, *config.ScanstoreConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	database, err := db.Connect(db.Config{})
	if err != nil {
		return nil, nil, err
	}
	return gormstore.NewStores(database), cfg, nil
}

// newRevoker returns nil when token revocation is disabled.
func newRevoker(cfg *config.ScanstoreConfig) revocation.Revoker {
	if !cfg.TokenRevocationEnabled || cfg.TokenRevocationURL == "" {
		return nil
	}
	return revocation.NewClient(cfg.TokenRevocationURL, cfg.TokenRevocationToken, logger)
}

// newWorkers builds a pool with every job handler registered.
func newWorkers(stores *store.Stores, cfg *config.ScanstoreConfig, workers int) (*worker.Pool, *worker.Jobs) {
	if workers < 1 {
		workers = cfg.WorkerCount
	}
	pool := worker.NewPool(workers, workers*64, logger)
	jobs := worker.NewJobs(stores, cfg, pool, newRevoker(cfg), logger)
	jobs.Register(pool)
	return pool, jobs
}
