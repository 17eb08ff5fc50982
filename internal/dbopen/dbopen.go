// CLAUDE:SUMMARY Opens SQLite databases with replay-friendly pragmas and retries busy statements.
// Package dbopen opens the SQLite databases of domreplay (the segment
// spool) with the pragmas every writer relies on:
//
//	journal_mode = WAL
//	busy_timeout = 10000
//	synchronous  = NORMAL
//	foreign_keys = ON
//
// The pure-Go modernc driver is registered by this package.
package dbopen

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

type options struct {
	busyTimeout int
	mkdirAll    bool
	schemas     []string
}

// Option customises Open.
type Option func(*options)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds.
func WithBusyTimeout(ms int) Option { return func(o *options) { o.busyTimeout = ms } }

// WithMkdirAll creates the parent directory of the database file.
func WithMkdirAll() Option { return func(o *options) { o.mkdirAll = true } }

// WithSchema runs s once the pragmas are applied.
func WithSchema(s string) Option { return func(o *options) { o.schemas = append(o.schemas, s) } }

// Open opens (creating if needed) the database at path.
func Open(path string, opts ...Option) (*sql.DB, error) {
	o := options{busyTimeout: 10_000}
	for _, fn := range opts {
		fn(&o)
	}
	if o.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("dbopen: open: %w", err)
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeout),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: %s: %w", p, err)
		}
	}
	for _, s := range o.schemas {
		if _, err := db.Exec(s); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: schema: %w", err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbopen: ping: %w", err)
	}
	return db, nil
}

// OpenMemory opens a private in-memory database for a test. A single
// connection is kept so every query sees the same database.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("dbopen.OpenMemory: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
