// Package storetest runs the behaviour every store.Store must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dailywell/aigov/pkg/ledger"
	"github.com/dailywell/aigov/pkg/models"
	"github.com/dailywell/aigov/pkg/store"
)

var base = time.Date(2026, time.February, 3, 14, 0, 0, 0, time.UTC)

// Run exercises a fresh store returned by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("LoadMissing", func(t *testing.T) { testLoadMissing(t, open(t)) })
	t.Run("SaveAndLoad", func(t *testing.T) { testSaveAndLoad(t, open(t)) })
	t.Run("VersionConflict", func(t *testing.T) { testVersionConflict(t, open(t)) })
	t.Run("Interactions", func(t *testing.T) { testInteractions(t, open(t)) })
}

func testLoadMissing(t *testing.T, s store.Store) {
	_, err := s.LoadLedger(context.Background(), "nobody")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testSaveAndLoad(t *testing.T, s store.Store) {
	ctx := context.Background()
	l := ledger.New("u1", models.PlanTrial, base)
	_ = l.RecordTokens(1200, 300, models.TierCloudA)
	_ = l.RecordBilledCost(0.0123)
	l.RecordMessage(models.TierCloudA, models.IntentCoaching)
	l.RecentCalls = []time.Time{base}
	l.LastCallAt = base

	if err := s.SaveLedger(ctx, "u1", l); err != nil {
		t.Fatal(err)
	}
	if l.Version != 1 {
		t.Errorf("expected version 1 after first save, got %d", l.Version)
	}

	got, err := s.LoadLedger(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != 1 || got.Plan != models.PlanTrial || !got.Trial {
		t.Errorf("unexpected header %+v", got)
	}
	if got.TokensUsed != 1500 || got.BilledUSD != 0.0123 {
		t.Errorf("expected 1500 tokens and 0.0123 billed, got %d and %v", got.TokensUsed, got.BilledUSD)
	}
	if got.DailyIntentCalls[models.IntentCoaching] != 1 || got.CategoryCalls[models.CategoryChat] != 1 {
		t.Errorf("counters lost: %v %v", got.DailyIntentCalls, got.CategoryCalls)
	}
	if len(got.RecentCalls) != 1 || !got.RecentCalls[0].Equal(base) || !got.LastCallAt.Equal(base) {
		t.Errorf("timestamps lost: %v %v", got.RecentCalls, got.LastCallAt)
	}
	if !got.PeriodStart.Equal(ledger.MonthStart(base)) {
		t.Errorf("period start lost: %v", got.PeriodStart)
	}

	got.RecordMessage(models.TierLocalRule, models.IntentExplanation)
	if err := s.SaveLedger(ctx, "u1", got); err != nil {
		t.Fatal(err)
	}
	again, err := s.LoadLedger(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if again.Version != 2 || again.Messages.Total() != 2 {
		t.Errorf("expected version 2 with 2 messages, got %d/%d", again.Version, again.Messages.Total())
	}
}

func testVersionConflict(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.SaveLedger(ctx, "u1", ledger.New("u1", models.PlanMonthly, base)); err != nil {
		t.Fatal(err)
	}

	a, err := s.LoadLedger(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.LoadLedger(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}

	_ = a.RecordBilledCost(0.1)
	if err := s.SaveLedger(ctx, "u1", a); err != nil {
		t.Fatal(err)
	}
	_ = b.RecordBilledCost(0.2)
	if err := s.SaveLedger(ctx, "u1", b); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict for stale write, got %v", err)
	}

	if err := s.SaveLedger(ctx, "u1", ledger.New("u1", models.PlanMonthly, base)); !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict when creating an existing ledger, got %v", err)
	}

	got, err := s.LoadLedger(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.BilledUSD != 0.1 {
		t.Errorf("stale write leaked: billed %v", got.BilledUSD)
	}
}

func testInteractions(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		rec := models.InteractionRecord{
			ID:           fmt.Sprintf("rec-%d", i),
			SubjectID:    "u1",
			Timestamp:    base.Add(time.Duration(i) * time.Hour),
			InputTokens:  int64(100 * (i + 1)),
			OutputTokens: 10,
			Tier:         models.TierCloudA,
			Intent:       models.IntentCoaching,
			Source:       models.SourceCall,
			BilledUSD:    0.001,
			Duration:     250 * time.Millisecond,
		}
		if err := s.AppendInteraction(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.AppendInteraction(ctx, models.InteractionRecord{
		ID: "other", SubjectID: "u2", Timestamp: base, Tier: models.TierLocalRule, Intent: models.IntentInsight,
	}); err != nil {
		t.Fatal(err)
	}

	recent, err := s.ListRecentInteractions(ctx, "u1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recent))
	}
	if recent[0].ID != "rec-4" || recent[2].ID != "rec-2" {
		t.Errorf("expected newest first, got %s..%s", recent[0].ID, recent[2].ID)
	}
	if recent[0].InputTokens != 500 || recent[0].Duration != 250*time.Millisecond {
		t.Errorf("fields lost: %+v", recent[0])
	}

	since, err := s.ListInteractionsSince(ctx, "u1", base.Add(3*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(since) != 2 || since[0].ID != "rec-3" {
		t.Errorf("expected rec-3 and rec-4 oldest first, got %v", since)
	}

	none, err := s.ListRecentInteractions(ctx, "nobody", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("expected no records, got %d", len(none))
	}
}
