// Package memquota is an in-memory quota.Store for tests and single
// process deployments without a database.
package memquota

import (
	"context"
	"sync"
	"time"

	"github.com/pthurston/nodeflow/providers/quota"
)

type usageKey struct {
	userID      string
	periodStart int64
}

// Store keeps tiers, per-period run counts and a credit ledger in maps
// guarded by one mutex.
type Store struct {
	mu      sync.Mutex
	tiers   map[string]quota.Tier
	usage   map[usageKey]int
	credits map[string]int
}

func New() *Store {
	return &Store{
		tiers:   map[string]quota.Tier{},
		usage:   map[usageKey]int{},
		credits: map[string]int{},
	}
}

// SetTier assigns a tier to a user. Users without an assignment resolve
// to the free tier.
func (s *Store) SetTier(userID string, tier quota.Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[userID] = tier
}

func (s *Store) UserTier(_ context.Context, userID string) (quota.Tier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tier, ok := s.tiers[userID]; ok {
		return tier, nil
	}
	return quota.TierFree, nil
}

func (s *Store) RunsInPeriod(_ context.Context, userID string, from, to time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for key, count := range s.usage {
		if key.userID != userID {
			continue
		}
		start := time.Unix(key.periodStart, 0).UTC()
		if !start.Before(from) && start.Before(to) {
			total += count
		}
	}
	return total, nil
}

func (s *Store) IncrementUsage(_ context.Context, userID string, periodStart time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[usageKey{userID: userID, periodStart: periodStart.UTC().Unix()}]++
	return nil
}

func (s *Store) DebitCredits(_ context.Context, userID string, amount int, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits[userID] += amount
	return nil
}

// CreditsDebited reports the total credits debited for a user. Test
// helper.
func (s *Store) CreditsDebited(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credits[userID]
}

var _ quota.Store = (*Store)(nil)
