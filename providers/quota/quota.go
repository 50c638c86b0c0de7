package quota

import (
	"context"
	"fmt"
	"time"
)

// Tier is a user's subscription tier. Unlimited tiers never block a run;
// the free tier is metered per calendar month.
type Tier string

const (
	TierFree       Tier = "free"
	TierUnlimitedA Tier = "unlimited-a"
	TierUnlimitedB Tier = "unlimited-b"
)

// Unlimited reports whether the tier is exempt from metering.
func (t Tier) Unlimited() bool {
	return t == TierUnlimitedA || t == TierUnlimitedB
}

// DefaultFreeLimit is the free tier's monthly run allowance.
const DefaultFreeLimit = 10

// UnmeteredRemaining is the Remaining value reported when no meter applies
// (unlimited tier or anonymous run).
const UnmeteredRemaining = -1

// Decision is the admission outcome for one run request. For metered
// users, Remaining already accounts for the run being admitted.
type Decision struct {
	Allowed   bool
	Remaining int
	Tier      Tier
}

// Store is the quota collaborator: tier lookup, monthly usage reads, and
// atomic usage writes. Implementations must make IncrementUsage atomic per
// (user, period) so concurrent runs cannot lose a debit.
type Store interface {
	// UserTier resolves the user's tier. Unknown users are free tier.
	UserTier(ctx context.Context, userID string) (Tier, error)

	// RunsInPeriod counts runs recorded in [from, to).
	RunsInPeriod(ctx context.Context, userID string, from, to time.Time) (int, error)

	// IncrementUsage atomically records one run against the period
	// starting at periodStart.
	IncrementUsage(ctx context.Context, userID string, periodStart time.Time) error

	// DebitCredits records a secondary credit-ledger debit.
	DebitCredits(ctx context.Context, userID string, amount int, at time.Time) error
}

// Gate enforces the monthly execution quota: a pre-run admission check and
// a post-run debit. The gate itself holds no mutable state; atomicity
// lives in the Store.
type Gate struct {
	store     Store
	freeLimit int
	now       func() time.Time
}

// NewGate creates a Gate over the given store. freeLimit <= 0 selects
// DefaultFreeLimit.
func NewGate(store Store, freeLimit int) *Gate {
	if freeLimit <= 0 {
		freeLimit = DefaultFreeLimit
	}
	return &Gate{store: store, freeLimit: freeLimit, now: time.Now}
}

// WithClock overrides the gate's clock. Tests use it to pin the period.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Check decides whether a run may proceed.
//
// Anonymous runs (empty userID) are allowed but unmetered. Unlimited tiers
// always pass. Free-tier users are blocked strictly when used >= limit;
// otherwise the reported Remaining is limit-used-1, reflecting the
// in-flight run.
func (g *Gate) Check(ctx context.Context, userID string) (Decision, error) {
	if userID == "" {
		return Decision{Allowed: true, Remaining: UnmeteredRemaining}, nil
	}

	tier, err := g.store.UserTier(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("resolve tier for %q: %w", userID, err)
	}
	if tier.Unlimited() {
		return Decision{Allowed: true, Remaining: UnmeteredRemaining, Tier: tier}, nil
	}

	from, to := monthBounds(g.now())
	used, err := g.store.RunsInPeriod(ctx, userID, from, to)
	if err != nil {
		return Decision{}, fmt.Errorf("count runs for %q: %w", userID, err)
	}

	if used >= g.freeLimit {
		return Decision{Allowed: false, Remaining: 0, Tier: tier}, nil
	}
	return Decision{Allowed: true, Remaining: g.freeLimit - used - 1, Tier: tier}, nil
}

// Debit records usage after a successful run: one run against the current
// period, plus a credit-ledger debit proportional to node count (minimum
// one credit). Callers log and swallow the returned error; accounting
// failures never roll back a successful run.
func (g *Gate) Debit(ctx context.Context, userID string, nodeCount int) error {
	if userID == "" {
		return nil
	}

	tier, err := g.store.UserTier(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve tier for %q: %w", userID, err)
	}

	now := g.now()
	periodStart, _ := monthBounds(now)

	if !tier.Unlimited() {
		if err := g.store.IncrementUsage(ctx, userID, periodStart); err != nil {
			return fmt.Errorf("increment usage for %q: %w", userID, err)
		}
	}

	credits := nodeCount
	if credits < 1 {
		credits = 1
	}
	if err := g.store.DebitCredits(ctx, userID, credits, now); err != nil {
		return fmt.Errorf("debit credits for %q: %w", userID, err)
	}
	return nil
}

// monthBounds returns the UTC calendar-month window containing now.
func monthBounds(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}
