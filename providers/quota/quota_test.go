package quota_test

import (
	"context"
	"testing"
	"time"

	"github.com/pthurston/nodeflow/providers/quota"
	"github.com/pthurston/nodeflow/providers/quota/memquota"
)

func fixedClock() func() time.Time {
	at := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func gateWithUsage(t *testing.T, tier quota.Tier, used int, limit int) (*quota.Gate, *memquota.Store) {
	t.Helper()
	store := memquota.New()
	store.SetTier("u-1", tier)
	gate := quota.NewGate(store, limit).WithClock(fixedClock())

	periodStart := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < used; i++ {
		if err := store.IncrementUsage(context.Background(), "u-1", periodStart); err != nil {
			t.Fatalf("IncrementUsage() error = %v", err)
		}
	}
	return gate, store
}

func TestCheck_FreeTierAtLimitBlocked(t *testing.T) {
	gate, _ := gateWithUsage(t, quota.TierFree, 3, 3)

	d, err := gate.Check(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if d.Allowed {
		t.Error("run at limit should be blocked")
	}
	if d.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", d.Remaining)
	}
}

func TestCheck_FreeTierLastSlotAllowedWithZeroRemaining(t *testing.T) {
	gate, _ := gateWithUsage(t, quota.TierFree, 2, 3)

	d, err := gate.Check(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !d.Allowed {
		t.Error("one slot left should be allowed")
	}
	if d.Remaining != 0 {
		t.Errorf("remaining = %d, want 0 (this run consumes the last slot)", d.Remaining)
	}
}

func TestCheck_UnlimitedTiersNeverBlocked(t *testing.T) {
	for _, tier := range []quota.Tier{quota.TierUnlimitedA, quota.TierUnlimitedB} {
		t.Run(string(tier), func(t *testing.T) {
			gate, _ := gateWithUsage(t, tier, 500, 3)

			d, err := gate.Check(context.Background(), "u-1")
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if !d.Allowed {
				t.Error("unlimited tier blocked")
			}
			if d.Remaining != quota.UnmeteredRemaining {
				t.Errorf("remaining = %d, want unmetered", d.Remaining)
			}
		})
	}
}

func TestCheck_AnonymousAllowedUnmetered(t *testing.T) {
	gate := quota.NewGate(memquota.New(), 3).WithClock(fixedClock())

	d, err := gate.Check(context.Background(), "")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !d.Allowed || d.Remaining != quota.UnmeteredRemaining {
		t.Errorf("decision = %+v", d)
	}
}

func TestCheck_UsageOutsidePeriodIgnored(t *testing.T) {
	store := memquota.New()
	gate := quota.NewGate(store, 3).WithClock(fixedClock())

	// Heavy usage last month must not count against March.
	february := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		if err := store.IncrementUsage(context.Background(), "u-1", february); err != nil {
			t.Fatalf("IncrementUsage() error = %v", err)
		}
	}

	d, err := gate.Check(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !d.Allowed || d.Remaining != 2 {
		t.Errorf("decision = %+v, want allowed with remaining 2", d)
	}
}

func TestDebit_IncrementsUsageAndCredits(t *testing.T) {
	gate, store := gateWithUsage(t, quota.TierFree, 0, 3)

	if err := gate.Debit(context.Background(), "u-1", 7); err != nil {
		t.Fatalf("Debit() error = %v", err)
	}

	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	used, err := store.RunsInPeriod(context.Background(), "u-1", from, to)
	if err != nil {
		t.Fatalf("RunsInPeriod() error = %v", err)
	}
	if used != 1 {
		t.Errorf("used = %d, want 1", used)
	}
	if got := store.CreditsDebited("u-1"); got != 7 {
		t.Errorf("credits = %d, want 7", got)
	}
}

func TestDebit_MinimumOneCredit(t *testing.T) {
	gate, store := gateWithUsage(t, quota.TierFree, 0, 3)

	if err := gate.Debit(context.Background(), "u-1", 0); err != nil {
		t.Fatalf("Debit() error = %v", err)
	}
	if got := store.CreditsDebited("u-1"); got != 1 {
		t.Errorf("credits = %d, want 1", got)
	}
}

func TestDebit_UnlimitedSkipsUsageCounter(t *testing.T) {
	gate, store := gateWithUsage(t, quota.TierUnlimitedA, 0, 3)

	if err := gate.Debit(context.Background(), "u-1", 4); err != nil {
		t.Fatalf("Debit() error = %v", err)
	}

	from := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	used, err := store.RunsInPeriod(context.Background(), "u-1", from, from.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("RunsInPeriod() error = %v", err)
	}
	if used != 0 {
		t.Errorf("unlimited tier usage = %d, want 0", used)
	}
	if got := store.CreditsDebited("u-1"); got != 4 {
		t.Errorf("credits = %d, want 4", got)
	}
}

func TestDebit_AnonymousNoop(t *testing.T) {
	store := memquota.New()
	gate := quota.NewGate(store, 3).WithClock(fixedClock())

	if err := gate.Debit(context.Background(), "", 5); err != nil {
		t.Fatalf("Debit() error = %v", err)
	}
	if got := store.CreditsDebited(""); got != 0 {
		t.Errorf("credits = %d, want 0", got)
	}
}
