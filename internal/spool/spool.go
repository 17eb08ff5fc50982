// CLAUDE:SUMMARY SQLite spool sink storing every segment payload for later inspection.
// Package spool persists segment payloads in a SQLite table so they can be
// inspected or re-delivered after the recording ends.
package spool

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/domreplay/internal/dbopen"
	"github.com/hazyhaar/domreplay/internal/idgen"
	"github.com/hazyhaar/domreplay/internal/payload"
	"github.com/hazyhaar/domreplay/record"
)

const schema = `
CREATE TABLE IF NOT EXISTS replay_segments (
	id              TEXT PRIMARY KEY,
	session_id      TEXT NOT NULL,
	view_id         TEXT NOT NULL,
	index_in_view   INTEGER NOT NULL,
	start_ms        INTEGER NOT NULL,
	end_ms          INTEGER NOT NULL,
	records_count   INTEGER NOT NULL,
	creation_reason TEXT NOT NULL,
	flush_reason    TEXT NOT NULL,
	exit            INTEGER NOT NULL DEFAULT 0,
	raw_size        INTEGER NOT NULL,
	compressed_size INTEGER NOT NULL,
	event           TEXT NOT NULL,
	segment         BLOB NOT NULL,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_replay_segments_view ON replay_segments(view_id, index_in_view);
CREATE INDEX IF NOT EXISTS idx_replay_segments_created ON replay_segments(created_at DESC);
`

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("spool: segment not found")

// Entry is one spooled segment. Segment is only filled by Get.
type Entry struct {
	ID          string               `json:"id"`
	FlushReason record.FlushReason   `json:"flush_reason"`
	Exit        bool                 `json:"exit"`
	Event       record.EventMetadata `json:"event"`
	Segment     []byte               `json:"-"`
	CreatedAt   int64                `json:"created_at"`
}

// Spool is a sink writing every payload as one row.
type Spool struct {
	db     *sql.DB
	owned  bool
	newID  idgen.Generator
	logger *slog.Logger
}

// Option configures a Spool.
type Option func(*Spool)

// WithIDGenerator replaces the row id generator.
func WithIDGenerator(g idgen.Generator) Option { return func(s *Spool) { s.newID = g } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Spool) { s.logger = l } }

// New applies the schema on db and returns a spool writing to it. The
// caller keeps ownership of db.
func New(db *sql.DB, opts ...Option) (*Spool, error) {
	if db == nil {
		return nil, fmt.Errorf("spool: DB is required")
	}
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("spool: schema: %w", err)
		}
	}
	s := &Spool{db: db, newID: idgen.Default, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Open opens the database at path and returns a spool that closes it.
func Open(path string, opts ...Option) (*Spool, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll())
	if err != nil {
		return nil, fmt.Errorf("spool: %w", err)
	}
	s, err := New(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

func (s *Spool) Send(ctx context.Context, p payload.Payload) error {
	return s.insert(ctx, p, false)
}

// SendOnExit stores the payload like Send; a local write needs no special
// exit path.
func (s *Spool) SendOnExit(ctx context.Context, p payload.Payload) error {
	return s.insert(ctx, p, true)
}

func (s *Spool) insert(ctx context.Context, p payload.Payload, exit bool) error {
	ev, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("spool: marshal event: %w", err)
	}
	m := p.Metadata
	_, err = dbopen.Exec(ctx, s.db, `INSERT INTO replay_segments
		(id, session_id, view_id, index_in_view, start_ms, end_ms, records_count,
		 creation_reason, flush_reason, exit, raw_size, compressed_size, event, segment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.newID(), m.Session.ID, m.View.ID, m.IndexInView, m.Start, m.End, m.RecordsCount,
		string(m.CreationReason), string(p.Reason), exit, m.RawSegmentSize, m.CompressedSegmentSize,
		string(ev), p.Segment, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("spool: insert: %w", err)
	}
	s.logger.Debug("spool: segment stored", "view", m.View.ID, "index", m.IndexInView, "bytes", len(p.Segment))
	return nil
}

// List returns the most recent entries first, without segment bytes. An
// empty viewID lists every view.
func (s *Spool) List(ctx context.Context, viewID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT id, flush_reason, exit, event, created_at FROM replay_segments`
	args := []any{}
	if viewID != "" {
		q += ` WHERE view_id = ?`
		args = append(args, viewID)
	}
	q += ` ORDER BY created_at DESC, start_ms DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("spool: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scan(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns one entry with its compressed segment.
func (s *Spool) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, flush_reason, exit, event, created_at, segment FROM replay_segments WHERE id = ?`, id)
	e, err := scan(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// Count returns the number of spooled segments.
func (s *Spool) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM replay_segments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("spool: count: %w", err)
	}
	return n, nil
}

// Close closes the database when the spool opened it.
func (s *Spool) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(r scanner, withSegment bool) (Entry, error) {
	var (
		e      Entry
		reason string
		ev     string
	)
	dest := []any{&e.ID, &reason, &e.Exit, &ev, &e.CreatedAt}
	if withSegment {
		dest = append(dest, &e.Segment)
	}
	if err := r.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("spool: scan: %w", err)
	}
	e.FlushReason = record.FlushReason(reason)
	if err := json.Unmarshal([]byte(ev), &e.Event); err != nil {
		return Entry{}, fmt.Errorf("spool: decode event: %w", err)
	}
	return e, nil
}
