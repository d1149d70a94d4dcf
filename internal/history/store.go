// Package history persists a ledger of batch runs in SQLite.
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

// Job statuses recorded in the ledger.
const (
	StatusEncoded  = "encoded"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

// Run is one batch invocation.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	InputDir    string
	OutputDir   string
	Backend     string
	Quality     int
	Concurrency int
	Discovered  int
	Encoded     int
	Skipped     int
	Failed      int
	Canceled    int
	Error       string
	Jobs        []Job
}

// Job is the outcome of one file within a run.
type Job struct {
	InputPath  string
	OutputPath string
	Status     string
	BytesIn    int64
	BytesOut   int64
	Duration   time.Duration
	Digest     string
	Error      string
}

// Store manages the run ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the ledger database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts a run and its jobs in one transaction.
func (s *Store) Record(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("record run: missing id")
	}
	return retryOnBusy(ctx, func() error {
		return s.record(ctx, run)
	})
}

func (s *Store) record(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
		id, started_at, finished_at, input_dir, output_dir, backend, quality, concurrency,
		discovered, encoded, skipped, failed, canceled, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt), run.InputDir, run.OutputDir,
		run.Backend, run.Quality, run.Concurrency,
		run.Discovered, run.Encoded, run.Skipped, run.Failed, run.Canceled, run.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO jobs (
		run_id, input_path, output_path, status, bytes_in, bytes_out, duration_ms, digest, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare job insert: %w", err)
	}
	defer stmt.Close()

	for _, job := range run.Jobs {
		if _, err := stmt.ExecContext(ctx,
			run.ID, job.InputPath, job.OutputPath, job.Status,
			job.BytesIn, job.BytesOut, job.Duration.Milliseconds(), job.Digest, job.Error,
		); err != nil {
			return fmt.Errorf("insert job %s: %w", job.InputPath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first, without their jobs.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, started_at, finished_at, input_dir, output_dir, backend, quality, concurrency,
		discovered, encoded, skipped, failed, canceled, error
	FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run            Run
			started, ended string
		)
		if err := rows.Scan(
			&run.ID, &started, &ended, &run.InputDir, &run.OutputDir, &run.Backend, &run.Quality, &run.Concurrency,
			&run.Discovered, &run.Encoded, &run.Skipped, &run.Failed, &run.Canceled, &run.Error,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(started)
		run.FinishedAt = parseTime(ended)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Jobs returns the recorded jobs of a run in insertion order.
func (s *Store) Jobs(ctx context.Context, runID string) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		input_path, output_path, status, bytes_in, bytes_out, duration_ms, digest, error
	FROM jobs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			job        Job
			durationMS int64
		)
		if err := rows.Scan(&job.InputPath, &job.OutputPath, &job.Status,
			&job.BytesIn, &job.BytesOut, &durationMS, &job.Digest, &job.Error); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job.Duration = time.Duration(durationMS) * time.Millisecond
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
