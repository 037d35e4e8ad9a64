package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dailywell/aigov/pkg/models"
	"github.com/dailywell/aigov/pkg/store"
	"github.com/dailywell/aigov/pkg/store/storetest"
)

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	cfg.Addr = mr.Addr()
	s, err := New(cfg, nil)
	if err != nil {
		mr.Close()
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
		mr.Close()
	})
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newTestStore(t, Config{}) })
}

func TestInteractionsTrimmed(t *testing.T) {
	s := newTestStore(t, Config{MaxInteractions: 2})
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := s.AppendInteraction(ctx, models.InteractionRecord{ID: id, SubjectID: "u1"}); err != nil {
			t.Fatal(err)
		}
	}
	recs, err := s.ListRecentInteractions(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].ID != "c" || recs[1].ID != "b" {
		t.Errorf("expected [c b], got %v", recs)
	}
}

func TestKeyPrefix(t *testing.T) {
	s := newTestStore(t, Config{KeyPrefix: "test:"})
	if got := s.ledgerKey("u1"); got != "test:ledger:u1" {
		t.Errorf("unexpected key %s", got)
	}
	if err := s.Health(context.Background()); err != nil {
		t.Errorf("health: %v", err)
	}
}
