package store_test

import (
	"context"
	"testing"

	"github.com/dailywell/aigov/pkg/models"
	"github.com/dailywell/aigov/pkg/store"
	"github.com/dailywell/aigov/pkg/store/storetest"
)

func TestMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return store.NewMemory(0) })
}

func TestMemoryBound(t *testing.T) {
	m := store.NewMemory(3)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		_ = m.AppendInteraction(ctx, models.InteractionRecord{ID: id, SubjectID: "u1"})
	}
	recs, _ := m.ListRecentInteractions(ctx, "u1", 0)
	if len(recs) != 3 || recs[2].ID != "b" {
		t.Errorf("expected oldest record dropped, got %v", recs)
	}
}
