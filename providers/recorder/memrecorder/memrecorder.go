// Package memrecorder is an in-memory recorder.Store for tests.
package memrecorder

import (
	"context"
	"sort"
	"sync"

	"github.com/pthurston/nodeflow/providers/recorder"
)

type resultKey struct {
	executionID string
	nodeID      string
}

type Store struct {
	mu      sync.Mutex
	runs    map[string]recorder.Run
	results map[resultKey]recorder.NodeResult
}

func New() *Store {
	return &Store{
		runs:    map[string]recorder.Run{},
		results: map[resultKey]recorder.NodeResult{},
	}
}

func (s *Store) UpsertRun(_ context.Context, run recorder.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ExecutionID] = run
	return nil
}

func (s *Store) InsertNodeResults(_ context.Context, results []recorder.NodeResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range results {
		s.results[resultKey{executionID: r.ExecutionID, nodeID: r.NodeID}] = r
	}
	return nil
}

func (s *Store) RecentRuns(_ context.Context, userID string, limit int) ([]recorder.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var runs []recorder.Run
	for _, run := range s.runs {
		if run.UserID == userID {
			runs = append(runs, run)
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Run returns a stored run by execution id. Test helper.
func (s *Store) Run(executionID string) (recorder.Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[executionID]
	return run, ok
}

// NodeResult returns a stored node result. Test helper.
func (s *Store) NodeResult(executionID, nodeID string) (recorder.NodeResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[resultKey{executionID: executionID, nodeID: nodeID}]
	return r, ok
}

var _ recorder.Store = (*Store)(nil)
