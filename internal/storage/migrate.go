package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// migrateURL returns the database URL understood by the migrate driver.
func (c Config) migrateURL() (string, error) {
	switch c.Driver {
	case DriverSQLite, "":
		abs, err := filepath.Abs(c.Path)
		if err != nil {
			return "", fmt.Errorf("resolving sqlite path: %w", err)
		}
		return "sqlite://" + filepath.ToSlash(abs), nil
	case DriverPostgres:
		return c.DSN, nil
	default:
		return "", fmt.Errorf("unknown driver %q", c.Driver)
	}
}

func newMigrator(cfg Config) (*migrate.Migrate, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	src, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	dbURL, err := cfg.migrateURL()
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

// RunMigrations applies all pending migrations for the configured driver.
func RunMigrations(cfg Config) error {
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Drop deletes the whole database behind cfg without going through an open
// Store. The next Open recreates an empty schema.
func Drop(ctx context.Context, cfg Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch cfg.Driver {
	case DriverSQLite, "":
		for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
			if err := os.Remove(cfg.Path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("removing %s: %w", cfg.Path+suffix, err)
			}
		}
		return nil
	case DriverPostgres:
		m, err := newMigrator(cfg)
		if err != nil {
			return err
		}
		defer m.Close()
		if err := m.Drop(); err != nil {
			return fmt.Errorf("dropping database: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}
