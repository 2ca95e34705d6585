package structset

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStruct is a test struct that will be used in tests
type testStruct struct {
	ID     int    `sql:"id"`
	Name   string `sql:"name,omitempty"`
	Ratio  float64
	Hidden []string `sql:"-"`
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{"id", "name", "Ratio"}, Columns(testStruct{}))
}

func TestValues(t *testing.T) {
	values := Values(testStruct{ID: 3, Name: "wf0", Ratio: 0.5, Hidden: []string{"x"}})
	assert.Equal(t, []any{3, "wf0", 0.5}, values)
}

func TestInsertStatement(t *testing.T) {
	assert.Equal(t, "INSERT INTO things (id,name,Ratio) VALUES (?,?,?)", InsertStatement("things", testStruct{}))
}

func TestScanRow(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	defer db.Close()

	_, err = db.Exec("CREATE TABLE things (id INTEGER, name TEXT, Ratio REAL, extra TEXT)")
	require.NoError(t, err)

	row := testStruct{ID: 1, Name: "a", Ratio: 1.5}
	_, err = db.Exec(InsertStatement("things", row), Values(row)...)
	require.NoError(t, err)

	rows, err := db.Query("SELECT * FROM things")
	require.NoError(t, err)

	defer rows.Close()

	var got []testStruct

	for rows.Next() {
		var s testStruct
		require.NoError(t, ScanRow(rows, &s))

		got = append(got, s)
	}

	require.NoError(t, rows.Err())
	assert.Equal(t, []testStruct{row}, got)

	assert.Error(t, ScanRow(rows, testStruct{}))
}
