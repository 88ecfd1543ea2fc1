//go:build !embed_migrations

package main

import (
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const defaultMigrationsPath = "db/migrations"

func migrationsPath() string {
	if p := os.Getenv("SCANSTORE_MIGRATIONS_PATH"); p != "" {
		return p
	}
	return defaultMigrationsPath
}

func createMigrateInstance(dbURL string) (*migrate.Migrate, error) {
	path := migrationsPath()
	logger.Debug("reading migrations", "source", "file://"+path)
	return migrate.New("file://"+path, dbURL)
}
