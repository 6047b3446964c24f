package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies all pending up migrations for the active dialect.
func Migrate(d *DB, logger *zap.Logger) error {
	m, err := newMigrator(d)
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("no migrations applied yet")
	case err != nil:
		logger.Warn("could not read migration version", zap.Error(err))
	default:
		logger.Info("current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("database schema is up to date")
			return nil
		}
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err = m.Version()
	if err != nil {
		return fmt.Errorf("read final migration version: %w", err)
	}
	logger.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Rollback reverts the last applied migration.
func Rollback(d *DB, logger *zap.Logger) error {
	m, err := newMigrator(d)
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	logger.Info("migration rolled back")
	return nil
}

// newMigrator builds a migrate instance over the shared *sql.DB.
// m.Close is never called: it would close the pool we do not own.
func newMigrator(d *DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations/"+string(d.dialect))
	if err != nil {
		return nil, fmt.Errorf("open migrations source: %w", err)
	}

	var driver database.Driver
	switch d.dialect {
	case Postgres:
		driver, err = postgres.WithInstance(d.sql, &postgres.Config{MigrationsTable: "schema_migrations"})
	case SQLite:
		driver, err = sqlite.WithInstance(d.sql, &sqlite.Config{MigrationsTable: "schema_migrations"})
	default:
		err = fmt.Errorf("unsupported dialect %q", d.dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(d.dialect), driver)
	if err != nil {
		return nil, fmt.Errorf("create migration instance: %w", err)
	}
	return m, nil
}
