package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Ref: https://github.com/mattn/go-sqlite3#connection-string
var defaultOpts = map[string]string{
	"_busy_timeout": "5000",
	"_journal_mode": "WAL",
	"_synchronous":  "1",
	"_foreign_keys": "1",
}

// Make DSN from DB file path and opts map.
func makeDSN(filePath string, opts map[string]string) string {
	optsSlice := make([]string, 0, len(opts))
	for _, opt := range slices.Sorted(maps.Keys(opts)) {
		optsSlice = append(optsSlice, fmt.Sprintf("%s=%s", opt, opts[opt]))
	}

	return fmt.Sprintf("file:%s?%s", filePath, strings.Join(optsSlice, "&"))
}

// setupDB creates the DB file and its directory when missing and opens it.
func setupDB(dbFilePath string, logger *slog.Logger) (*sql.DB, error) {
	if _, err := os.Stat(dbFilePath); err != nil {
		if err := os.MkdirAll(filepath.Dir(dbFilePath), 0o750); err != nil {
			logger.Error("Failed to create DB directory", "err", err)

			return nil, err
		}

		file, err := os.Create(dbFilePath)
		if err != nil {
			logger.Error("Failed to create DB file", "err", err)

			return nil, err
		}

		file.Close()

		logger.Debug("DB file created", "path", dbFilePath)
	}

	db, err := sql.Open(DriverName, makeDSN(dbFilePath, defaultOpts))
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, err
	}

	return db, nil
}
