// Package store persists decoded simulation logs in a SQLite database so
// runs can be compared across experiments.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cws-dev/cwstools/internal/common"
	"github.com/cws-dev/cwstools/internal/structset"
	"github.com/cws-dev/cwstools/pkg/simlog"
	"github.com/cws-dev/cwstools/pkg/simlog/store/migrator"
)

// Directory containing DB migrations.
const migrationsDir = "migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Table names.
const (
	runsTable          = "runs"
	vmsTable           = "vms"
	workflowsTable     = "workflows"
	tasksTable         = "tasks"
	transfersTable     = "transfers"
	storageStatesTable = "storage_states"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Run is an imported log.
type Run struct {
	ID            string         `sql:"id"`
	Name          string         `sql:"name"`
	Settings      string         `sql:"settings"`
	ImportedAt    time.Time      `sql:"imported_at"`
	VMs           int            `sql:"num_vms"`
	Workflows     int            `sql:"num_workflows"`
	Tasks         int            `sql:"num_tasks"`
	Transfers     int            `sql:"num_transfers"`
	StorageStates int            `sql:"num_storage_states"`
	Outcomes      map[string]int `sql:"-"`
}

type vmRow struct {
	RunID    string  `sql:"run_id"`
	VMID     string  `sql:"vm_id"`
	Started  float64 `sql:"started"`
	Finished float64 `sql:"finished"`
	Cores    float64 `sql:"cores"`
	Price    float64 `sql:"price"`
}

type workflowRow struct {
	RunID      string `sql:"run_id"`
	WorkflowID string `sql:"workflow_id"`
	Priority   int    `sql:"priority"`
}

type taskRow struct {
	RunID      string  `sql:"run_id"`
	Seq        int     `sql:"seq"`
	RowID      string  `sql:"row_id"`
	WorkflowID string  `sql:"workflow_id"`
	TaskID     string  `sql:"task_id"`
	VMID       string  `sql:"vm_id"`
	Started    float64 `sql:"started"`
	Finished   float64 `sql:"finished"`
	Result     string  `sql:"result"`
}

type transferRow struct {
	RunID     string  `sql:"run_id"`
	Seq       int     `sql:"seq"`
	RowID     string  `sql:"row_id"`
	VMID      string  `sql:"vm_id"`
	Started   float64 `sql:"started"`
	Finished  float64 `sql:"finished"`
	Direction string  `sql:"direction"`
	JobID     string  `sql:"job_id"`
	FileID    string  `sql:"file_id"`
}

type storageStateRow struct {
	RunID      string  `sql:"run_id"`
	Seq        int     `sql:"seq"`
	Time       float64 `sql:"time"`
	Readers    int     `sql:"readers"`
	Writers    int     `sql:"writers"`
	ReadSpeed  float64 `sql:"read_speed"`
	WriteSpeed float64 `sql:"write_speed"`
}

var insertStatements = map[string]string{
	runsTable:          structset.InsertStatement(runsTable, Run{}),
	vmsTable:           structset.InsertStatement(vmsTable, vmRow{}),
	workflowsTable:     structset.InsertStatement(workflowsTable, workflowRow{}),
	tasksTable:         structset.InsertStatement(tasksTable, taskRow{}),
	transfersTable:     structset.InsertStatement(transfersTable, transferRow{}),
	storageStatesTable: structset.InsertStatement(storageStatesTable, storageStateRow{}),
}

// Store is a SQLite backed collection of imported runs.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the database at path, creating it when needed, and migrates it
// to the latest schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := setupDB(path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB %s: %w", path, err)
	}

	if _, err := migrator.New(migrationsFS, migrationsDir, logger).Up(db); err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to migrate DB %s: %w", path, err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Import stores log under name in a single transaction. The run id is
// derived from raw, the undecoded log content, so importing the same content
// twice returns the existing run and false.
func (s *Store) Import(ctx context.Context, name string, log *simlog.Log, raw []byte) (Run, bool, error) {
	defer common.TimeTrack(time.Now(), "Log import", s.logger)

	id, err := common.ContentUUID(raw)
	if err != nil {
		return Run{}, false, fmt.Errorf("failed to derive run id: %w", err)
	}

	run, err := s.Run(ctx, id)
	if err == nil {
		s.logger.Debug("Run already imported", "id", id, "name", run.Name)

		return run, false, nil
	} else if !errors.Is(err, ErrRunNotFound) {
		return Run{}, false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback() //nolint:errcheck

	stmts, err := prepareStatements(ctx, tx)
	if err != nil {
		return Run{}, false, err
	}

	defer func() {
		for _, stmt := range stmts {
			stmt.Close()
		}
	}()

	if err := execStatements(ctx, stmts, id, name, log); err != nil {
		return Run{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return Run{}, false, fmt.Errorf("failed to commit run %s: %w", id, err)
	}

	s.logger.Info("Run imported", "id", id, "name", name, "tasks", len(log.Tasks))

	run, err = s.Run(ctx, id)

	return run, true, err
}

// Make and return a map of prepared statements keyed by table name.
func prepareStatements(ctx context.Context, tx *sql.Tx) (map[string]*sql.Stmt, error) {
	stmts := make(map[string]*sql.Stmt, len(insertStatements))

	for table, stmt := range insertStatements {
		prepared, err := tx.PrepareContext(ctx, stmt)
		if err != nil {
			for _, p := range stmts {
				p.Close()
			}

			return nil, fmt.Errorf("failed to prepare statement for table %s: %w", table, err)
		}

		stmts[table] = prepared
	}

	return stmts, nil
}

// Insert the run and all of its records.
func execStatements(ctx context.Context, stmts map[string]*sql.Stmt, id, name string, log *simlog.Log) error {
	exec := func(table string, row any) error {
		if _, err := stmts[table].ExecContext(ctx, structset.Values(row)...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}

		return nil
	}

	run := Run{
		ID:            id,
		Name:          name,
		Settings:      log.Settings,
		ImportedAt:    time.Now().UTC(),
		VMs:           len(log.VMs),
		Workflows:     len(log.Workflows),
		Tasks:         len(log.Tasks),
		Transfers:     len(log.Transfers),
		StorageStates: len(log.StorageStates),
	}
	if err := exec(runsTable, run); err != nil {
		return err
	}

	for _, vm := range log.VMList() {
		if err := exec(vmsTable, vmRow{id, vm.ID, vm.Started, vm.Finished, vm.Cores, vm.Price}); err != nil {
			return err
		}
	}

	for _, wf := range log.WorkflowList() {
		if err := exec(workflowsTable, workflowRow{id, wf.ID, wf.Priority}); err != nil {
			return err
		}
	}

	for i, t := range log.Tasks {
		if err := exec(tasksTable, taskRow{
			id, i, t.ID, t.Workflow, t.TaskID, t.VM, t.Started, t.Finished, t.Result,
		}); err != nil {
			return err
		}
	}

	for i, t := range log.Transfers {
		if err := exec(transfersTable, transferRow{
			id, i, t.ID, t.VM, t.Started, t.Finished, t.Direction, t.JobID, t.FileID,
		}); err != nil {
			return err
		}
	}

	for i, st := range log.StorageStates {
		if err := exec(storageStatesTable, storageStateRow{
			id, i, st.Time, st.Readers, st.Writers, st.ReadSpeed, st.WriteSpeed,
		}); err != nil {
			return err
		}
	}

	return nil
}

// Run returns the run with the given id and its task outcome histogram.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	runs, err := s.queryRuns(ctx, "SELECT * FROM runs WHERE id = ?", id)
	if err != nil {
		return Run{}, err
	}

	if len(runs) == 0 {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	return runs[0], nil
}

// Runs returns all imported runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	return s.queryRuns(ctx, "SELECT * FROM runs ORDER BY imported_at, name")
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	defer rows.Close()

	var runs []Run

	for rows.Next() {
		var run Run
		if err := structset.ScanRow(rows, &run); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		if runs[i].Outcomes, err = s.outcomes(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}

	return runs, nil
}

// outcomes counts the tasks of a run per outcome.
func (s *Store) outcomes(ctx context.Context, id string) (map[string]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"SELECT task_outcome(result), COUNT(*) FROM tasks WHERE run_id = ? GROUP BY 1",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query task outcomes: %w", err)
	}

	defer rows.Close()

	outcomes := make(map[string]int)

	for rows.Next() {
		var (
			outcome string
			count   int
		)

		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}

		outcomes[outcome] = count
	}

	return outcomes, rows.Err()
}

// BusyVMs returns the VM rows that ran at least one task in run id, using
// the numeric part of the VM id.
func (s *Store) BusyVMs(ctx context.Context, id string) ([]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"SELECT DISTINCT vm_row(vm_id) AS vm_number FROM tasks WHERE run_id = ? ORDER BY vm_number",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query busy VMs: %w", err)
	}

	defer rows.Close()

	var vms []int

	for rows.Next() {
		var row int
		if err := rows.Scan(&row); err != nil {
			return nil, err
		}

		vms = append(vms, row)
	}

	return vms, rows.Err()
}
