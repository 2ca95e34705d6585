package store

import (
	"database/sql"

	"github.com/cws-dev/cwstools/pkg/simlog"
	"github.com/mattn/go-sqlite3"
)

// DriverName is the sqlite3 driver registered with the log helper functions.
const DriverName = "cws_sqlite3"

// Registers a sqlite3 driver whose connections know task_outcome(result)
// and vm_row(vm_id) so queries classify tasks the same way the decoder does.
func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("task_outcome", taskOutcome, true); err != nil {
				return err
			}

			return conn.RegisterFunc("vm_row", simlog.VMRow, true)
		},
	})
}

func taskOutcome(result string) string {
	return simlog.Task{Result: result}.Outcome().String()
}
