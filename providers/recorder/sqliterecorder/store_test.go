package sqliterecorder

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/pthurston/nodeflow/providers/recorder"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(executionID string, startedAt time.Time) recorder.Run {
	return recorder.Run{
		ExecutionID: executionID,
		WorkflowID:  "wf-1",
		UserID:      "u-1",
		Archetype:   "assistant",
		Status:      recorder.StatusCompleted,
		Summary:     "done",
		NodeCount:   3,
		EdgeCount:   2,
		WaveCount:   1,
		Model:       "gemini-2.0-flash",
		StartedAt:   startedAt,
		FinishedAt:  startedAt.Add(4 * time.Second),
	}
}

func TestUpsertRun_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	if err := store.UpsertRun(ctx, sampleRun("exec-1", started)); err != nil {
		t.Fatalf("UpsertRun() error = %v", err)
	}

	runs, err := store.RecentRuns(ctx, "u-1", 10)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	got := runs[0]
	if got.ExecutionID != "exec-1" || got.Archetype != "assistant" || got.Summary != "done" {
		t.Errorf("run = %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("started = %v, want %v", got.StartedAt, started)
	}
}

func TestUpsertRun_SecondWriteUpdatesStatus(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	run := sampleRun("exec-1", started)
	if err := store.UpsertRun(ctx, run); err != nil {
		t.Fatalf("UpsertRun() error = %v", err)
	}
	run.Status = recorder.StatusDegraded
	run.Summary = "narrative only"
	if err := store.UpsertRun(ctx, run); err != nil {
		t.Fatalf("UpsertRun() second call error = %v", err)
	}

	runs, err := store.RecentRuns(ctx, "u-1", 10)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1 (upsert, not insert)", len(runs))
	}
	if runs[0].Status != recorder.StatusDegraded || runs[0].Summary != "narrative only" {
		t.Errorf("run = %+v", runs[0])
	}
}

func TestInsertNodeResults_ReplacesPerNode(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	if err := store.UpsertRun(ctx, sampleRun("exec-1", started)); err != nil {
		t.Fatalf("UpsertRun() error = %v", err)
	}

	first := []recorder.NodeResult{
		{ExecutionID: "exec-1", NodeID: "n-1", Label: "Agent", Result: json.RawMessage(`"draft"`)},
		{ExecutionID: "exec-1", NodeID: "n-2", Label: "Judge", Result: json.RawMessage(`"ok"`)},
	}
	if err := store.InsertNodeResults(ctx, first); err != nil {
		t.Fatalf("InsertNodeResults() error = %v", err)
	}
	second := []recorder.NodeResult{
		{ExecutionID: "exec-1", NodeID: "n-1", Label: "Agent", Result: json.RawMessage(`"final"`)},
	}
	if err := store.InsertNodeResults(ctx, second); err != nil {
		t.Fatalf("InsertNodeResults() second call error = %v", err)
	}

	var result string
	err := store.db.QueryRowContext(ctx,
		`SELECT result FROM node_results WHERE execution_id = ? AND node_id = ?`,
		"exec-1", "n-1").Scan(&result)
	if err != nil {
		t.Fatalf("select node result: %v", err)
	}
	if result != `"final"` {
		t.Errorf("result = %s, want \"final\"", result)
	}

	var count int
	if err := store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM node_results WHERE execution_id = ?`, "exec-1").Scan(&count); err != nil {
		t.Fatalf("count node results: %v", err)
	}
	if count != 2 {
		t.Errorf("rows = %d, want 2", count)
	}
}

func TestRecentRuns_OrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		run := sampleRun("exec-"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Hour))
		if err := store.UpsertRun(ctx, run); err != nil {
			t.Fatalf("UpsertRun() error = %v", err)
		}
	}

	runs, err := store.RecentRuns(ctx, "u-1", 3)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("runs = %d, want 3", len(runs))
	}
	if runs[0].ExecutionID != "exec-e" {
		t.Errorf("newest = %s, want exec-e", runs[0].ExecutionID)
	}
	for i := 1; i < len(runs); i++ {
		if runs[i].StartedAt.After(runs[i-1].StartedAt) {
			t.Errorf("runs out of order at %d", i)
		}
	}
}
