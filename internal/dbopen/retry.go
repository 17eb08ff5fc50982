package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const busyRetries = 3

// IsBusy reports whether err is SQLite's busy or locked condition.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// Exec runs a statement, retrying busy failures with a 100/200 ms pause.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	for i := range busyRetries {
		res, err := db.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}
		if !IsBusy(err) || i == busyRetries-1 {
			return nil, err
		}
		t := time.NewTimer(time.Duration(100*(i+1)) * time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("dbopen: exec: %w", ctx.Err())
		case <-t.C:
		}
	}
	return nil, fmt.Errorf("dbopen: exec: retries exhausted")
}
