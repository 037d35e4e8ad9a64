package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/dailywell/aigov/pkg/models"
)

var base = time.Date(2026, time.March, 18, 10, 30, 0, 0, time.UTC) // Wednesday

func TestRecordTokens(t *testing.T) {
	l := New("u1", models.PlanMonthly, base)

	if err := l.RecordTokens(3500, 700, models.TierCloudA); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordTokens(100, 50, models.TierLocalSmallModel); err != nil {
		t.Fatal(err)
	}

	if l.TokensUsed != 4200 {
		t.Errorf("expected 4200 cloud tokens, got %d", l.TokensUsed)
	}
	if l.TokensToday != 4200 {
		t.Errorf("expected 4200 tokens today, got %d", l.TokensToday)
	}
	if l.LocalTokens != 150 {
		t.Errorf("expected 150 local tokens, got %d", l.LocalTokens)
	}
	if l.Lifetime.Tokens != 4350 {
		t.Errorf("expected 4350 lifetime tokens, got %d", l.Lifetime.Tokens)
	}

	if err := l.RecordTokens(-1, 0, models.TierCloudA); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestBilledCostMonotonic(t *testing.T) {
	l := New("u1", models.PlanMonthly, base)
	prev := l.BilledUSD
	for _, amt := range []float64{0.01, 0, 0.2, 0.0001} {
		if err := l.RecordBilledCost(amt); err != nil {
			t.Fatal(err)
		}
		if l.BilledUSD < prev {
			t.Fatalf("billed decreased from %v to %v", prev, l.BilledUSD)
		}
		prev = l.BilledUSD
	}
	if err := l.RecordBilledCost(-0.5); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
	if l.BilledUSD != prev {
		t.Errorf("rejected amount changed billed: %v", l.BilledUSD)
	}
}

func TestRecordMessageAndDerived(t *testing.T) {
	l := New("u1", models.PlanMonthly, base)
	l.RecordMessage(models.TierLocalRule, models.IntentExplanation)
	l.RecordMessage(models.TierLocalSmallModel, models.IntentCoaching)
	l.RecordMessage(models.TierCloudB, models.IntentScan)
	l.RecordMessage(models.TierCloudA, models.IntentCoaching)

	if l.Messages.Total() != 4 || l.Messages.Cloud != 2 {
		t.Errorf("unexpected message counts: %+v", l.Messages)
	}
	if l.CategoryCalls[models.CategoryChat] != 3 || l.CategoryCalls[models.CategoryScan] != 1 {
		t.Errorf("unexpected category counts: %v", l.CategoryCalls)
	}
	if l.DailyIntentCalls[models.IntentCoaching] != 2 {
		t.Errorf("expected 2 coaching today, got %d", l.DailyIntentCalls[models.IntentCoaching])
	}
	if got := l.EfficiencyRatio(); got != 0.5 {
		t.Errorf("expected efficiency 0.5, got %v", got)
	}

	l.TokensUsed = 750
	if got := l.TokensRemaining(1000); got != 250 {
		t.Errorf("expected 250 remaining, got %d", got)
	}
	if got := l.TokensRemaining(500); got != 0 {
		t.Errorf("expected remaining clamped to 0, got %d", got)
	}
	if got := l.PercentUsed(1000); got != 75 {
		t.Errorf("expected 75%%, got %v", got)
	}
	l.BilledUSD = 2.5
	if got := l.CostRemainingUSD(3); got != 0.5 {
		t.Errorf("expected 0.5 remaining, got %v", got)
	}
	if got := l.CostRemainingUSD(2); got != 0 {
		t.Errorf("expected 0 remaining past cap, got %v", got)
	}
}

func TestEfficiencyRatioEmpty(t *testing.T) {
	if got := New("u1", models.PlanFree, base).EfficiencyRatio(); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestWindowBoundaries(t *testing.T) {
	if got := WeekStart(base); !got.Equal(time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected Monday 16 March, got %v", got)
	}
	sunday := time.Date(2026, time.March, 22, 23, 59, 0, 0, time.UTC)
	if got := WeekStart(sunday); !got.Equal(time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("sunday should belong to the week starting Monday 16, got %v", got)
	}
	if got := MonthStart(base); !got.Equal(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected month start %v", got)
	}
}

func TestApplyResetsDaily(t *testing.T) {
	l := New("u1", models.PlanTrial, base)
	_ = l.RecordTokens(1000, 200, models.TierCloudA)
	l.RecordMessage(models.TierCloudA, models.IntentInsight)

	next := base.Add(24 * time.Hour)
	r := l.ApplyResets(next)
	if !r.Daily || r.Weekly || r.Monthly {
		t.Fatalf("expected only daily reset, got %+v", r)
	}
	if l.TokensToday != 0 || l.MessagesToday != 0 || l.DailyIntentCalls[models.IntentInsight] != 0 {
		t.Errorf("daily counters not reset: %+v", l)
	}
	if l.TokensUsed != 1200 {
		t.Errorf("monthly tokens should survive a daily reset, got %d", l.TokensUsed)
	}
	if l.WeeklyIntentCalls[models.IntentInsight] != 1 {
		t.Errorf("weekly counters should survive a daily reset")
	}

	if again := l.ApplyResets(next); again.Any() {
		t.Errorf("second apply at same instant should be a no-op, got %+v", again)
	}
}

func TestApplyResetsMonthly(t *testing.T) {
	l := New("u1", models.PlanMonthly, base)
	_ = l.RecordTokens(5000, 1000, models.TierCloudB)
	_ = l.RecordBilledCost(0.09)
	l.RecordMessage(models.TierCloudB, models.IntentReport)

	april := time.Date(2026, time.April, 2, 8, 0, 0, 0, time.UTC)
	r := l.ApplyResets(april)
	if !r.Monthly || !r.Daily || !r.Weekly {
		t.Fatalf("expected all windows to roll, got %+v", r)
	}
	if l.TokensUsed != 0 || l.BilledUSD != 0 || l.Messages.Total() != 0 {
		t.Errorf("period counters not zeroed: tokens=%d billed=%v msgs=%d", l.TokensUsed, l.BilledUSD, l.Messages.Total())
	}
	if !l.PeriodStart.Equal(MonthStart(april)) {
		t.Errorf("expected period start %v, got %v", MonthStart(april), l.PeriodStart)
	}
	if l.Lifetime.Tokens != 6000 || l.Lifetime.BilledUSD != 0.09 || l.Lifetime.Messages != 1 {
		t.Errorf("lifetime counters changed: %+v", l.Lifetime)
	}
	if len(l.History) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(l.History))
	}
	if h := l.History[0]; h.TokensUsed != 6000 || h.BilledUSD != 0.09 {
		t.Errorf("unexpected snapshot %+v", h)
	}
}

func TestHistoryBounded(t *testing.T) {
	l := New("u1", models.PlanMonthly, base)
	now := base
	for i := 0; i < MaxHistory+5; i++ {
		_ = l.RecordBilledCost(0.01)
		now = now.AddDate(0, 1, 0)
		l.ApplyResets(now)
	}
	if len(l.History) != MaxHistory {
		t.Errorf("expected %d snapshots, got %d", MaxHistory, len(l.History))
	}
}

func TestForceResetIdempotent(t *testing.T) {
	l := New("u1", models.PlanMonthly, base)
	_ = l.RecordTokens(100, 100, models.TierCloudA)
	_ = l.RecordBilledCost(0.5)
	l.RecordMessage(models.TierCloudA, models.IntentCoaching)

	if !l.ForceReset(base) {
		t.Fatal("expected first force reset to change the ledger")
	}
	after := l.Clone()

	if l.ForceReset(base) {
		t.Error("expected second force reset to be a no-op")
	}
	if l.BilledUSD != 0 || l.TokensUsed != 0 || l.MessagesToday != 0 {
		t.Errorf("counters not reset: %+v", l)
	}
	if len(l.History) != len(after.History) {
		t.Errorf("second reset added history: %d vs %d", len(l.History), len(after.History))
	}
	if l.Lifetime.Tokens != 200 {
		t.Errorf("lifetime tokens changed: %d", l.Lifetime.Tokens)
	}
}

func TestPeriodResetsDropReservations(t *testing.T) {
	l := New("u1", models.PlanMonthly, base)
	_ = l.RecordBilledCost(0.4)
	l.Reserve(Reservation{ID: "r1", AmountUSD: 0.3, CreatedAt: base})

	if !l.ForceReset(base) {
		t.Fatal("expected force reset to change the ledger")
	}
	if l.Committed() != 0 || len(l.Reservations) != 0 {
		t.Errorf("reservations survived force reset: %v %v", l.ReservedUSD, l.Reservations)
	}

	// A ledger holding only a reservation is not pristine.
	l.Reserve(Reservation{ID: "r2", AmountUSD: 0.2, CreatedAt: base})
	if !l.ForceReset(base) {
		t.Fatal("expected force reset to drop the reservation")
	}
	if l.ReservedUSD != 0 {
		t.Errorf("expected nothing reserved, got %v", l.ReservedUSD)
	}
	if l.ForceReset(base) {
		t.Error("expected a third force reset to be a no-op")
	}

	l.Reserve(Reservation{ID: "r3", AmountUSD: 0.5, CreatedAt: base})
	if r := l.ApplyResets(base.AddDate(0, 1, 0)); !r.Monthly {
		t.Fatal("expected a monthly rollover")
	}
	if l.Committed() != 0 || len(l.Reservations) != 0 {
		t.Errorf("reservations survived monthly rollover: %v %v", l.ReservedUSD, l.Reservations)
	}
	if _, ok := l.Release("r3"); ok {
		t.Error("expected the dropped reservation to be unknown")
	}
}

func TestReservations(t *testing.T) {
	l := New("u1", models.PlanMonthly, base)
	l.Reserve(Reservation{ID: "r1", AmountUSD: 0.2, CreatedAt: base})
	l.Reserve(Reservation{ID: "r2", AmountUSD: 0.3, CreatedAt: base.Add(time.Minute)})
	if l.Committed() != 0.5 {
		t.Errorf("expected 0.5 committed, got %v", l.Committed())
	}

	if _, ok := l.Release("r1"); !ok {
		t.Fatal("expected r1 to exist")
	}
	if _, ok := l.Release("r1"); ok {
		t.Error("expected second release to report missing")
	}

	if n := l.ExpireReservations(base.Add(11*time.Minute), 10*time.Minute); n != 1 {
		t.Errorf("expected 1 expired reservation, got %d", n)
	}
	if l.ReservedUSD != 0 {
		t.Errorf("expected nothing reserved, got %v", l.ReservedUSD)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	l := New("u1", models.PlanMonthly, base)
	l.RecordMessage(models.TierCloudA, models.IntentCoaching)
	l.RecentCalls = append(l.RecentCalls, base)

	c := l.Clone()
	c.RecordMessage(models.TierCloudA, models.IntentCoaching)
	c.RecentCalls[0] = base.Add(time.Hour)

	if l.DailyIntentCalls[models.IntentCoaching] != 1 {
		t.Errorf("clone shares intent map")
	}
	if !l.RecentCalls[0].Equal(base) {
		t.Errorf("clone shares timestamps")
	}
}
