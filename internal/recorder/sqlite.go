package recorder

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLite persists run records to a SQLite database.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

var _ Recorder = (*SQLite)(nil)

// NewSQLite opens (or creates) the database and runs migrations.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps in-memory databases coherent and serializes
	// writers ahead of SQLite's own lock.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	r := &SQLite{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	slog.Debug("sqlite recorder opened", "path", path)
	return r, nil
}

func (r *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ingest_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			source      TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			timeframe   TEXT NOT NULL,
			candles     INTEGER NOT NULL,
			error       TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON ingest_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS shard_writes (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   INTEGER NOT NULL REFERENCES ingest_runs(id),
			period   TEXT NOT NULL,
			path     TEXT NOT NULL,
			status   TEXT NOT NULL,
			candles  INTEGER NOT NULL,
			gaps     INTEGER NOT NULL,
			attempts INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_shard_run ON shard_writes(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("failed to exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLite) RecordRun(run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec(`INSERT INTO ingest_runs
		(started_at, duration_ms, source, symbol, timeframe, candles, error)
		VALUES (?,?,?,?,?,?,?)`,
		run.StartedAt.UnixMilli(), run.Duration.Milliseconds(),
		run.Source, run.Symbol, run.Timeframe, run.Candles, run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	for _, s := range run.Shards {
		if _, err := r.db.Exec(`INSERT INTO shard_writes
			(run_id, period, path, status, candles, gaps, attempts)
			VALUES (?,?,?,?,?,?,?)`,
			runID, s.Period, s.Path, s.Status, s.Candles, s.Gaps, s.Attempts,
		); err != nil {
			return fmt.Errorf("failed to record shard write: %w", err)
		}
	}
	return nil
}

func (r *SQLite) Close() error {
	return r.db.Close()
}
