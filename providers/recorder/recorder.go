package recorder

import (
	"context"
	"encoding/json"
	"time"
)

// Run statuses persisted with each record.
const (
	StatusCompleted = "completed"
	StatusDegraded  = "degraded"
	StatusFailed    = "failed"
)

// Run is the persisted record of one workflow execution.
type Run struct {
	ExecutionID string
	WorkflowID  string
	UserID      string
	Archetype   string
	Status      string
	Summary     string
	NodeCount   int
	EdgeCount   int
	WaveCount   int
	Unmatched   int
	Model       string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// NodeResult is one node's reconciled output within a run.
type NodeResult struct {
	ExecutionID string
	NodeID      string
	Label       string
	Result      json.RawMessage
}

// Store persists run history. Recording is best effort: the engine logs
// and swallows store errors so a successful run is never failed by its
// own bookkeeping.
type Store interface {
	// UpsertRun inserts or replaces the record keyed by ExecutionID.
	UpsertRun(ctx context.Context, run Run) error

	// InsertNodeResults stores the per-node results of a run, replacing
	// any previous rows for the same (execution, node) pair.
	InsertNodeResults(ctx context.Context, results []NodeResult) error

	// RecentRuns lists the most recent runs for a user, newest first.
	RecentRuns(ctx context.Context, userID string, limit int) ([]Run, error)
}
