package report

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the history database was created by a
// different schema version.
var ErrSchemaMismatch = errors.New("report: history schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	missFailed       = "failed"
	missUnclassified = "unclassified"
)

// Compile-time check that SQLiteRepository implements Repository.
var _ Repository = (*SQLiteRepository)(nil)

// SQLiteRepository keeps run history in a SQLite database file.
type SQLiteRepository struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the history database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
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
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	repo := &SQLiteRepository{db: db, path: path}
	if err := repo.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Path returns the database file path.
func (r *SQLiteRepository) Path() string {
	return r.path
}

// Close closes the underlying database connection.
func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *SQLiteRepository) initSchema(ctx context.Context) error {
	var tableExists int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return r.createSchema(ctx)
	}

	var version int
	if err := r.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (r *SQLiteRepository) createSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Save replaces the run and its entries in a single transaction.
func (r *SQLiteRepository) Save(ctx context.Context, run *Run) error {
	return retryOnBusy(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin save tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := deleteRun(ctx, tx, run.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO runs (id, input_dir, started_at, finished_at) VALUES (?, ?, ?, ?)",
			run.ID, run.InputDir, toNanos(run.StartedAt), toNanos(run.FinishedAt),
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for i, e := range run.Entries {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO run_entries (run_id, position, group_key, video_count, output_path, url) VALUES (?, ?, ?, ?, ?, ?)",
				run.ID, i, e.GroupKey, e.VideoCount, e.OutputPath, e.URL,
			); err != nil {
				return fmt.Errorf("insert entry %s: %w", e.GroupKey, err)
			}
		}
		if err := insertMisses(ctx, tx, run.ID, missFailed, run.Failed); err != nil {
			return err
		}
		if err := insertMisses(ctx, tx, run.ID, missUnclassified, run.Unclassified); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit run: %w", err)
		}
		return nil
	})
}

// FindByID loads a run with its entries.
func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*Run, error) {
	run := &Run{ID: id}
	var started, finished int64
	err := r.db.QueryRowContext(ctx,
		"SELECT input_dir, started_at, finished_at FROM runs WHERE id = ?", id,
	).Scan(&run.InputDir, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select run: %w", err)
	}
	run.StartedAt = fromNanos(started)
	run.FinishedAt = fromNanos(finished)

	if err := r.loadEntries(ctx, run); err != nil {
		return nil, err
	}
	if err := r.loadMisses(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// List returns all runs, most recent first.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Run, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM runs ORDER BY started_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	_ = rows.Close()

	runs := make([]*Run, 0, len(ids))
	for _, id := range ids {
		run, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Delete removes a run and its entries.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	return retryOnBusy(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin delete tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM runs WHERE id = ?", id).Scan(&exists); err != nil {
			return fmt.Errorf("check run: %w", err)
		}
		if exists == 0 {
			return ErrRunNotFound
		}
		if err := deleteRun(ctx, tx, id); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func (r *SQLiteRepository) loadEntries(ctx context.Context, run *Run) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT group_key, video_count, output_path, url FROM run_entries WHERE run_id = ? ORDER BY position",
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("select entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	run.Entries = make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.GroupKey, &e.VideoCount, &e.OutputPath, &e.URL); err != nil {
			return fmt.Errorf("scan entry: %w", err)
		}
		run.Entries = append(run.Entries, e)
	}
	return rows.Err()
}

func (r *SQLiteRepository) loadMisses(ctx context.Context, run *Run) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT kind, name FROM run_misses WHERE run_id = ? ORDER BY kind, position",
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("select misses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var kind, name string
		if err := rows.Scan(&kind, &name); err != nil {
			return fmt.Errorf("scan miss: %w", err)
		}
		switch kind {
		case missFailed:
			run.Failed = append(run.Failed, name)
		case missUnclassified:
			run.Unclassified = append(run.Unclassified, name)
		}
	}
	return rows.Err()
}

func deleteRun(ctx context.Context, tx *sql.Tx, id string) error {
	for _, stmt := range []string{
		"DELETE FROM run_entries WHERE run_id = ?",
		"DELETE FROM run_misses WHERE run_id = ?",
		"DELETE FROM runs WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete run %s: %w", id, err)
		}
	}
	return nil
}

func insertMisses(ctx context.Context, tx *sql.Tx, runID, kind string, names []string) error {
	for i, name := range names {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO run_misses (run_id, position, kind, name) VALUES (?, ?, ?, ?)",
			runID, i, kind, name,
		); err != nil {
			return fmt.Errorf("insert %s %s: %w", kind, name, err)
		}
	}
	return nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

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
