// Package migrator applies embedded SQL migrations to SQLite databases
package migrator

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ErrDirty is returned when a previous migration failed half way.
var ErrDirty = errors.New("database is in a dirty migration state")

// Migrator applies the migrations found in one directory of a filesystem.
type Migrator struct {
	logger *slog.Logger
	files  fs.FS
	dir    string
}

// New returns a Migrator for the *.up.sql and *.down.sql files in dir.
func New(files fs.FS, dir string, logger *slog.Logger) *Migrator {
	return &Migrator{
		logger: logger,
		files:  files,
		dir:    dir,
	}
}

// Up migrates db to the latest version and returns that version.
func (m *Migrator) Up(db *sql.DB) (uint, error) {
	src, err := iofs.New(m.files, m.dir)
	if err != nil {
		return 0, fmt.Errorf("unable to read migrations: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return 0, fmt.Errorf("unable to create db instance: %w", err)
	}

	mg, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return 0, fmt.Errorf("unable to create migration: %w", err)
	}

	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("unable to apply migrations: %w", err)
	}

	version, dirty, err := mg.Version()
	if err != nil {
		return 0, fmt.Errorf("unable to get migration version: %w", err)
	}

	if dirty {
		return version, fmt.Errorf("%w at version %d", ErrDirty, version)
	}

	m.logger.Debug("DB schema migrated", "version", version)

	return version, nil
}
