// Package sqlitequota persists quota accounting in SQLite via the pure
// Go modernc.org/sqlite driver.
package sqlitequota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pthurston/nodeflow/providers/quota"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_tiers (
	user_id TEXT PRIMARY KEY,
	tier TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_usage (
	user_id TEXT NOT NULL,
	period_start INTEGER NOT NULL,
	used INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY(user_id, period_start)
);

CREATE TABLE IF NOT EXISTS credit_ledger (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	amount INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_credit_ledger_user ON credit_ledger(user_id, created_at);
`

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the quota database at dbPath.
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
		return nil, fmt.Errorf("apply quota schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) UserTier(ctx context.Context, userID string) (quota.Tier, error) {
	var tier string
	err := s.db.QueryRowContext(ctx,
		`SELECT tier FROM user_tiers WHERE user_id = ?`, userID).Scan(&tier)
	if errors.Is(err, sql.ErrNoRows) {
		return quota.TierFree, nil
	}
	if err != nil {
		return "", fmt.Errorf("select tier: %w", err)
	}
	return quota.Tier(tier), nil
}

// SetTier upserts a user's tier assignment.
func (s *Store) SetTier(ctx context.Context, userID string, tier quota.Tier) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_tiers(user_id, tier, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET tier = excluded.tier, updated_at = excluded.updated_at`,
		userID, string(tier), time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("upsert tier: %w", err)
	}
	return nil
}

func (s *Store) RunsInPeriod(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var used int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(used), 0) FROM run_usage
		WHERE user_id = ? AND period_start >= ? AND period_start < ?`,
		userID, from.UTC().Unix(), to.UTC().Unix()).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("sum run usage: %w", err)
	}
	return used, nil
}

// IncrementUsage relies on an upsert so concurrent runs in the same
// period serialize inside SQLite rather than in application code.
func (s *Store) IncrementUsage(ctx context.Context, userID string, periodStart time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_usage(user_id, period_start, used) VALUES(?, ?, 1)
		ON CONFLICT(user_id, period_start) DO UPDATE SET used = used + 1`,
		userID, periodStart.UTC().Unix())
	if err != nil {
		return fmt.Errorf("increment run usage: %w", err)
	}
	return nil
}

func (s *Store) DebitCredits(ctx context.Context, userID string, amount int, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_ledger(user_id, amount, created_at) VALUES(?, ?, ?)`,
		userID, amount, at.UTC().Unix())
	if err != nil {
		return fmt.Errorf("insert credit debit: %w", err)
	}
	return nil
}

var _ quota.Store = (*Store)(nil)
