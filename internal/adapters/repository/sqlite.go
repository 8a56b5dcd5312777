package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/pupcare/internal/domain/model"
	"github.com/okian/pupcare/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id              TEXT PRIMARY KEY,
	at              TEXT NOT NULL,
	at_unix_nano    INTEGER NOT NULL,
	type            TEXT NOT NULL,
	session_link_id TEXT NOT NULL DEFAULT '',
	parent_id       TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT 'unknown',
	duration_ns     INTEGER NOT NULL DEFAULT 0,
	value           REAL,
	media_ref       TEXT NOT NULL DEFAULT '',
	note            TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_events_at ON events(at_unix_nano, id);
CREATE INDEX IF NOT EXISTS idx_events_link ON events(session_link_id);
CREATE INDEX IF NOT EXISTS idx_events_parent ON events(parent_id);

CREATE TABLE IF NOT EXISTS coverage_gaps (
	id       TEXT PRIMARY KEY,
	start_at TEXT NOT NULL,
	end_at   TEXT,
	reason   TEXT NOT NULL DEFAULT ''
);
`

const eventColumns = `id, at, type, session_link_id, parent_id, location, duration_ns, value, media_ref, note`

// SQLiteStore implements Store on an SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// NewSQLiteStore opens or creates the database at path and migrates it.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(%d)", path, o.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, opts: o}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Append(ctx context.Context, e model.Event) error {
	start := time.Now()
	defer func() { metrics.RecordRepositoryWriteLatency(sinceMs(start)) }()

	if err := validate(e); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, at, at_unix_nano, type, session_link_id, parent_id, location, duration_ns, value, media_ref, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		eventArgs(e)...)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		metrics.RecordErrorByComponent("repository", "duplicate")
		return fmt.Errorf("%w: %s", ErrDuplicate, e.ID)
	}
	return nil
}

func (s *SQLiteStore) Replace(ctx context.Context, e model.Event) error {
	start := time.Now()
	defer func() { metrics.RecordRepositoryWriteLatency(sinceMs(start)) }()

	if err := validate(e); err != nil {
		return err
	}
	args := eventArgs(e)
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET at = ?, at_unix_nano = ?, type = ?, session_link_id = ?, parent_id = ?,
		 location = ?, duration_ns = ?, value = ?, media_ref = ?, note = ?
		 WHERE id = ?`,
		append(args[1:], e.ID)...)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		metrics.RecordErrorByComponent("repository", "not_found")
		return fmt.Errorf("%w: event %s", ErrNotFound, e.ID)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		metrics.RecordErrorByComponent("repository", "not_found")
		return fmt.Errorf("%w: event %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, fmt.Errorf("%w: event %s", ErrNotFound, id)
	}
	return e, err
}

func (s *SQLiteStore) Snapshot(ctx context.Context) ([]model.Event, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryReadLatency(sinceMs(start)) }()

	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY at_unix_nano, id`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		metrics.RecordErrorByComponent("repository", "count")
		return 0
	}
	return n
}

func (s *SQLiteStore) StartCoverage(ctx context.Context, start time.Time, reason string) (model.CoverageGap, error) {
	g := model.CoverageGap{ID: s.opts.newID(), Start: start, Reason: reason}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO coverage_gaps (id, start_at, reason) VALUES (?, ?, ?)`,
		g.ID, formatTime(start), reason)
	if err != nil {
		return model.CoverageGap{}, fmt.Errorf("insert coverage gap: %w", err)
	}
	return g, nil
}

func (s *SQLiteStore) EndCoverage(ctx context.Context, id string, end time.Time) (model.CoverageGap, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.CoverageGap{}, err
	}
	defer func() { _ = tx.Rollback() }()

	g, err := scanCoverage(tx.QueryRowContext(ctx,
		`SELECT id, start_at, end_at, reason FROM coverage_gaps WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.CoverageGap{}, fmt.Errorf("%w: coverage gap %s", ErrNotFound, id)
	}
	if err != nil {
		return model.CoverageGap{}, err
	}
	closed, err := closeCoverage(g, end)
	if err != nil {
		return g, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE coverage_gaps SET end_at = ? WHERE id = ?`, formatTime(end), id); err != nil {
		return model.CoverageGap{}, fmt.Errorf("update coverage gap: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.CoverageGap{}, fmt.Errorf("commit: %w", err)
	}
	return closed, nil
}

func (s *SQLiteStore) CoverageGaps(ctx context.Context) ([]model.CoverageGap, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, start_at, end_at, reason FROM coverage_gaps`)
	if err != nil {
		return nil, fmt.Errorf("query coverage gaps: %w", err)
	}
	defer rows.Close()

	out := []model.CoverageGap{}
	for rows.Next() {
		g, err := scanCoverage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coverage gaps: %w", err)
	}
	sortCoverage(out)
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func eventArgs(e model.Event) []any {
	var value any
	if e.Value != nil {
		value = *e.Value
	}
	return []any{
		e.ID,
		formatTime(e.Time),
		e.Time.UnixNano(),
		e.Type.String(),
		e.SessionLinkID,
		e.ParentID,
		e.Location.String(),
		int64(e.Duration),
		value,
		e.MediaRef,
		e.Note,
	}
}

func scanEvent(row scanner) (model.Event, error) {
	var (
		e            model.Event
		at, typ, loc string
		durationNs   int64
		value        sql.NullFloat64
	)
	if err := row.Scan(&e.ID, &at, &typ, &e.SessionLinkID, &e.ParentID, &loc, &durationNs, &value, &e.MediaRef, &e.Note); err != nil {
		return model.Event{}, err
	}

	var err error
	if e.Time, err = parseTime(at); err != nil {
		return model.Event{}, err
	}
	if e.Type, err = model.ParseEventType(typ); err != nil {
		return model.Event{}, fmt.Errorf("event %s: %w", e.ID, err)
	}
	if e.Location, err = model.ParseLocation(loc); err != nil {
		return model.Event{}, fmt.Errorf("event %s: %w", e.ID, err)
	}
	e.Duration = time.Duration(durationNs)
	if value.Valid {
		v := value.Float64
		e.Value = &v
	}
	return e, nil
}

func scanCoverage(row scanner) (model.CoverageGap, error) {
	var (
		g     model.CoverageGap
		start string
		end   sql.NullString
	)
	if err := row.Scan(&g.ID, &start, &end, &g.Reason); err != nil {
		return model.CoverageGap{}, err
	}
	var err error
	if g.Start, err = parseTime(start); err != nil {
		return model.CoverageGap{}, err
	}
	if end.Valid {
		t, err := parseTime(end.String)
		if err != nil {
			return model.CoverageGap{}, err
		}
		g.End = &t
	}
	return g, nil
}

// Times are stored in UTC; callers that need a local zone convert on read.
func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
