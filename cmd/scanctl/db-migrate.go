package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/scanstore/pkg/db"
)

const migrationsTable = "go_schema_migrations"

// dbMigrateCmd represents the db migrate command
var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create and/or upgrade the database schema",
	Long: `Create and/or upgrade the database schema.

This command runs all pending database migrations to bring the schema
up to date.

Example:
  scanctl db migrate`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations()
	},
}

var dbMigrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback database migrations",
	Long: `Rollback database migrations.

This command rolls back the specified number of migrations (default: 1).

Example:
  scanctl db down      # Rollback 1 migration
  scanctl db down 3    # Rollback 3 migrations`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[0])
			}
			steps = n
		}
		return runMigrationsDown(steps)
	},
}

var dbMigrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current migration version",
	Long:  `Show the current database migration version.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showMigrationStatus()
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbMigrateDownCmd)
	dbCmd.AddCommand(dbMigrateStatusCmd)
}

// withMigrationsTable points golang-migrate at its own version table.
func withMigrationsTable(dbURL string) string {
	if dbURL == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(dbURL, "?") {
		sep = "&"
	}
	return dbURL + sep + "x-migrations-table=" + migrationsTable
}

func openMigrate() (*migrate.Migrate, error) {
	dbURL := db.URL()
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	m, err := createMigrateInstance(withMigrationsTable(dbURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func runMigrations() error {
	m, err := openMigrate()
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, _ := m.Version()
	logger.Info("current schema version", "version", version, "dirty", dirty)

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("database is up to date")
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	newVersion, _, _ := m.Version()
	logger.Info("migrations complete", "version", newVersion)
	return nil
}

func runMigrationsDown(steps int) error {
	m, err := openMigrate()
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	logger.Info("rolling back migrations", "steps", steps)
	if err := m.Steps(-steps); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info("rolled back", "version", version)
	return nil
}

func showMigrationStatus() error {
	m, err := openMigrate()
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("No migrations have been applied yet")
			return nil
		}
		return err
	}

	fmt.Printf("Current version: %d\n", version)
	if dirty {
		fmt.Println("Warning: Database is in a dirty state")
	}
	return nil
}
