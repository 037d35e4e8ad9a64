package accounting

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dailywell/aigov/pkg/ledger"
	"github.com/dailywell/aigov/pkg/models"
	"github.com/dailywell/aigov/pkg/policy"
	"github.com/dailywell/aigov/pkg/store"
)

var now = time.Date(2026, time.July, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Accountant, *store.Memory) {
	t.Helper()
	st := store.NewMemory(0)
	return New(policy.NewHolder(policy.Default(), "", nil), st, nil), st
}

func TestApplyCloudCall(t *testing.T) {
	a, st := setup(t)
	l := ledger.New("u1", models.PlanMonthly, now)

	rec, err := a.Apply(l, models.CompletedCall{
		Intent: models.IntentCoaching, Tier: models.TierCloudA,
		InputTokens: 3500, OutputTokens: 700, Duration: time.Second,
	}, now)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(rec.BilledUSD-0.0105) > 1e-9 {
		t.Errorf("expected billed 0.0105, got %v", rec.BilledUSD)
	}
	if math.Abs(l.BilledUSD-0.0105) > 1e-9 || l.TokensUsed != 4200 || l.Messages.Cloud != 1 {
		t.Errorf("ledger not updated: billed=%v tokens=%d cloud=%d", l.BilledUSD, l.TokensUsed, l.Messages.Cloud)
	}
	if rec.ID == "" || rec.Source != models.SourceCall || rec.SubjectID != "u1" {
		t.Errorf("unexpected record %+v", rec)
	}

	if err := a.Append(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	recs, _ := st.ListRecentInteractions(context.Background(), "u1", 10)
	if len(recs) != 1 || recs[0].ID != rec.ID {
		t.Errorf("record not appended: %v", recs)
	}
}

func TestApplyLocalIsFree(t *testing.T) {
	a, _ := setup(t)
	l := ledger.New("u1", models.PlanMonthly, now)

	for _, tier := range []models.ExecutionTier{models.TierLocalRule, models.TierLocalSmallModel} {
		rec, err := a.Apply(l, models.CompletedCall{
			Intent: models.IntentInsight, Tier: tier, InputTokens: 900, OutputTokens: 300,
		}, now)
		if err != nil {
			t.Fatal(err)
		}
		if rec.BilledUSD != 0 {
			t.Errorf("%s billed %v", tier, rec.BilledUSD)
		}
	}
	if l.BilledUSD != 0 || l.TokensUsed != 0 || l.LocalTokens != 2400 {
		t.Errorf("unexpected ledger: billed=%v cloud=%d local=%d", l.BilledUSD, l.TokensUsed, l.LocalTokens)
	}
}

func TestApplyRejectsInvalid(t *testing.T) {
	a, _ := setup(t)
	l := ledger.New("u1", models.PlanMonthly, now)

	calls := map[string]models.CompletedCall{
		"negative input":  {Intent: models.IntentCoaching, Tier: models.TierCloudA, InputTokens: -5},
		"negative output": {Intent: models.IntentCoaching, Tier: models.TierCloudA, OutputTokens: -1},
		"unknown tier":    {Intent: models.IntentCoaching, Tier: "gpu_farm"},
		"unknown intent":  {Intent: "poetry", Tier: models.TierCloudA},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if _, err := a.Apply(l, call, now); !errors.Is(err, ErrInvalidUsage) {
				t.Errorf("expected ErrInvalidUsage, got %v", err)
			}
		})
	}
	if l.Messages.Total() != 0 || l.BilledUSD != 0 {
		t.Errorf("invalid calls changed the ledger")
	}
}

func TestExternalSource(t *testing.T) {
	a, _ := setup(t)
	l := ledger.New("u1", models.PlanMonthly, now)
	rec, err := a.Apply(l, models.CompletedCall{
		Intent: models.IntentExternal, Tier: models.TierCloudB,
		InputTokens: 1000, OutputTokens: 1000, Source: models.SourceExternal,
	}, now)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Source != models.SourceExternal || l.CategoryCalls[models.CategoryExternal] != 1 {
		t.Errorf("external usage not tagged: %+v", rec)
	}
}
