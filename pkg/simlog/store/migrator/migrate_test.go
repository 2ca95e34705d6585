package migrator

import (
	"database/sql"
	"embed"
	"log/slog"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Directory containing DB migrations.
const testMigrationsDir = "test_migrations"

//go:embed test_migrations/*.sql
var testMigrationsFS embed.FS

func openDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to open DB")

	t.Cleanup(func() { db.Close() })

	return db
}

func TestMigratorUp(t *testing.T) {
	files := fstest.MapFS{
		"migrations/000001_create_items.up.sql":   {Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY);")},
		"migrations/000001_create_items.down.sql": {Data: []byte("DROP TABLE items;")},
		"migrations/000002_add_name.up.sql":       {Data: []byte("ALTER TABLE items ADD COLUMN name TEXT;")},
		"migrations/000002_add_name.down.sql":     {Data: []byte("ALTER TABLE items DROP COLUMN name;")},
	}

	db := openDB(t)
	m := New(files, "migrations", slog.New(slog.DiscardHandler))

	version, err := m.Up(db)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	_, err = db.Exec("INSERT INTO items (id, name) VALUES (1, 'a')")
	require.NoError(t, err)

	// Applying again is a no-op
	version, err = m.Up(db)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestMigratorError(t *testing.T) {
	m := New(testMigrationsFS, testMigrationsDir, slog.New(slog.DiscardHandler))

	_, err := m.Up(openDB(t))
	assert.Error(t, err, "expected DB migrations error")
}

func TestMigratorMissingDir(t *testing.T) {
	m := New(testMigrationsFS, "missing", slog.New(slog.DiscardHandler))

	_, err := m.Up(openDB(t))
	assert.Error(t, err)
}
