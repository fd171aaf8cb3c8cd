// Package history keeps a SQLite log of finished encode jobs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id           TEXT NOT NULL,
    input_path       TEXT NOT NULL,
    output_path      TEXT,
    state            TEXT NOT NULL,
    layout           TEXT,
    video_kbps       INTEGER NOT NULL DEFAULT 0,
    bitrate_clamped  INTEGER NOT NULL DEFAULT 0,
    duration_seconds REAL,
    error_kind       TEXT,
    error_message    TEXT,
    started_at       TEXT NOT NULL,
    finished_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_finished ON runs(finished_at);
CREATE INDEX IF NOT EXISTS idx_runs_job ON runs(job_id);
`

// Entry is one finished job.
type Entry struct {
	ID              int64     `json:"id" doc:"Row id"`
	JobID           string    `json:"job_id" doc:"Job identifier"`
	Input           string    `json:"input" doc:"Source path"`
	Output          string    `json:"output,omitempty" doc:"Output path"`
	State           string    `json:"state" doc:"Final state"`
	Layout          string    `json:"layout,omitempty" doc:"Detected layout"`
	VideoKbps       int       `json:"video_kbps,omitempty" doc:"Planned video bitrate"`
	BitrateClamped  bool      `json:"bitrate_clamped,omitempty" doc:"Target size was clamped"`
	DurationSeconds float64   `json:"duration_seconds,omitempty" doc:"Source duration, 0 if unknown"`
	ErrorKind       string    `json:"error_kind,omitempty" doc:"Failure kind"`
	Error           string    `json:"error,omitempty" doc:"Failure message"`
	StartedAt       time.Time `json:"started_at" doc:"Run start"`
	FinishedAt      time.Time `json:"finished_at" doc:"Run end"`
}

// Elapsed returns the wall time of the run.
func (e Entry) Elapsed() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// Store is the SQLite-backed history.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var version int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version > schemaVersion:
		return fmt.Errorf("history database %s has schema %d, newer than supported %d", s.path, version, schemaVersion)
	}
	return nil
}

// Record inserts a finished job and returns its row id.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if strings.TrimSpace(e.JobID) == "" {
		return 0, errors.New("history: job id is required")
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = e.FinishedAt
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
            job_id, input_path, output_path, state, layout, video_kbps, bitrate_clamped,
            duration_seconds, error_kind, error_message, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.JobID,
		e.Input,
		nullableString(e.Output),
		e.State,
		nullableString(e.Layout),
		e.VideoKbps,
		e.BitrateClamped,
		nullableFloat(e.DurationSeconds),
		nullableString(e.ErrorKind),
		nullableString(e.Error),
		e.StartedAt.UTC().Format(time.RFC3339Nano),
		e.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first. limit <= 0 means 50.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, input_path, output_path, state, layout, video_kbps, bitrate_clamped,
                duration_seconds, error_kind, error_message, started_at, finished_at
         FROM runs ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// ForJob returns the entry recorded for a job, or nil when there is none.
func (s *Store) ForJob(ctx context.Context, jobID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, job_id, input_path, output_path, state, layout, video_kbps, bitrate_clamped,
                duration_seconds, error_kind, error_message, started_at, finished_at
         FROM runs WHERE job_id = ? ORDER BY id DESC LIMIT 1`, jobID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                         Entry
		output, layout, kind, msg sql.NullString
		duration                  sql.NullFloat64
		started, finished         string
	)
	if err := row.Scan(&e.ID, &e.JobID, &e.Input, &output, &e.State, &layout, &e.VideoKbps,
		&e.BitrateClamped, &duration, &kind, &msg, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan run: %w", err)
	}
	e.Output = output.String
	e.Layout = layout.String
	e.ErrorKind = kind.String
	e.Error = msg.String
	e.DurationSeconds = duration.Float64
	e.StartedAt = parseTime(started)
	e.FinishedAt = parseTime(finished)
	return e, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullableFloat(f float64) any {
	if f <= 0 {
		return nil
	}
	return f
}
