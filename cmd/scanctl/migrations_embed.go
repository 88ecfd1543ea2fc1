//go:build embed_migrations

package main

import (
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/doodlesbykumbi/scanstore/db/migrations"
)

func createMigrateInstance(dbURL string) (*migrate.Migrate, error) {
	d, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs driver: %w", err)
	}
	return migrate.NewWithSourceInstance("iofs", d, dbURL)
}
