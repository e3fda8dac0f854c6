// Package history persists a local record of refresh invocations in an
// embedded SQLite database. It is an operational convenience for the CLI
// — losing it costs nothing but the `history` listing, so callers treat
// write failures as warnings, never as invocation failures.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// Run is one recorded refresh invocation.
type Run struct {
	ID         string
	Connection string // connection name, or the server URL for raw descriptors
	Kind       string
	Resource   string
	Project    string
	ResourceID string
	JobID      string
	State      string // success, failed, timed out, unknown, error, triggered
	Reason     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store is a SQLite-backed run history.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the history database at path and applies
// migrations. Use ":memory:" for tests.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("history: creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: set WAL mode: %w", err)
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("history database ready", slog.String("path", path))

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one run, assigning it a UUID if it has none.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, connection, kind, resource, project, resource_id, job_id, state, reason, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Connection, run.Kind, run.Resource, run.Project,
		run.ResourceID, run.JobID, run.State, run.Reason,
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("history: recording run: %w", err)
	}

	return nil
}

// Recent returns up to limit runs, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, connection, kind, resource, project, resource_id, job_id, state, reason, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run

	for rows.Next() {
		var run Run

		if err := rows.Scan(&run.ID, &run.Connection, &run.Kind, &run.Resource,
			&run.Project, &run.ResourceID, &run.JobID, &run.State, &run.Reason,
			&run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("history: scanning run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: listing runs: %w", err)
	}

	return runs, nil
}
