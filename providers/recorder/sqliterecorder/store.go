// Package sqliterecorder persists run history in SQLite via the pure Go
// modernc.org/sqlite driver.
package sqliterecorder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pthurston/nodeflow/providers/recorder"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	execution_id TEXT PRIMARY KEY,
	workflow_id TEXT NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	archetype TEXT NOT NULL,
	status TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	node_count INTEGER NOT NULL DEFAULT 0,
	edge_count INTEGER NOT NULL DEFAULT 0,
	wave_count INTEGER NOT NULL DEFAULT 0,
	unmatched INTEGER NOT NULL DEFAULT 0,
	model TEXT NOT NULL DEFAULT '',
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_user ON runs(user_id, started_at);

CREATE TABLE IF NOT EXISTS node_results (
	execution_id TEXT NOT NULL,
	node_id TEXT NOT NULL,
	label TEXT NOT NULL DEFAULT '',
	result TEXT NOT NULL,
	PRIMARY KEY(execution_id, node_id),
	FOREIGN KEY(execution_id) REFERENCES runs(execution_id) ON DELETE CASCADE
);
`

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the run-history database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set sqlite pragma %q: %w", stmt, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply recorder schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) UpsertRun(ctx context.Context, run recorder.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs(execution_id, workflow_id, user_id, archetype, status, summary,
			node_count, edge_count, wave_count, unmatched, model, started_at, finished_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(execution_id) DO UPDATE SET
			status = excluded.status,
			summary = excluded.summary,
			unmatched = excluded.unmatched,
			finished_at = excluded.finished_at`,
		run.ExecutionID, run.WorkflowID, run.UserID, run.Archetype, run.Status, run.Summary,
		run.NodeCount, run.EdgeCount, run.WaveCount, run.Unmatched, run.Model,
		run.StartedAt.UTC().Unix(), run.FinishedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("upsert run %s: %w", run.ExecutionID, err)
	}
	return nil
}

func (s *Store) InsertNodeResults(ctx context.Context, results []recorder.NodeResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin node results tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO node_results(execution_id, node_id, label, result) VALUES(?, ?, ?, ?)
		ON CONFLICT(execution_id, node_id) DO UPDATE SET
			label = excluded.label,
			result = excluded.result`)
	if err != nil {
		return fmt.Errorf("prepare node result insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.ExecContext(ctx, r.ExecutionID, r.NodeID, r.Label, string(r.Result)); err != nil {
			return fmt.Errorf("insert node result %s/%s: %w", r.ExecutionID, r.NodeID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit node results: %w", err)
	}
	return nil
}

func (s *Store) RecentRuns(ctx context.Context, userID string, limit int) ([]recorder.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT execution_id, workflow_id, user_id, archetype, status, summary,
			node_count, edge_count, wave_count, unmatched, model, started_at, finished_at
		FROM runs WHERE user_id = ? ORDER BY started_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent runs: %w", err)
	}
	defer rows.Close()

	var runs []recorder.Run
	for rows.Next() {
		var run recorder.Run
		var started, finished int64
		if err := rows.Scan(&run.ExecutionID, &run.WorkflowID, &run.UserID, &run.Archetype,
			&run.Status, &run.Summary, &run.NodeCount, &run.EdgeCount, &run.WaveCount,
			&run.Unmatched, &run.Model, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = timeFromUnix(started)
		run.FinishedAt = timeFromUnix(finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func timeFromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

var _ recorder.Store = (*Store)(nil)
