package store

import (
	"context"
	"sync"
	"time"

	"github.com/dailywell/aigov/pkg/ledger"
	"github.com/dailywell/aigov/pkg/models"
)

// DefaultMaxInteractions bounds the per-subject log kept by Memory.
const DefaultMaxInteractions = 5000

// Memory is an in-process Store.
type Memory struct {
	mu           sync.RWMutex
	ledgers      map[string]*ledger.Ledger
	interactions map[string][]models.InteractionRecord
	max          int
}

// NewMemory creates an empty Memory store keeping at most maxInteractions
// records per subject; zero means DefaultMaxInteractions.
func NewMemory(maxInteractions int) *Memory {
	if maxInteractions <= 0 {
		maxInteractions = DefaultMaxInteractions
	}
	return &Memory{
		ledgers:      make(map[string]*ledger.Ledger),
		interactions: make(map[string][]models.InteractionRecord),
		max:          maxInteractions,
	}
}

// LoadLedger returns a copy of the stored ledger.
func (m *Memory) LoadLedger(_ context.Context, subjectID string) (*ledger.Ledger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.ledgers[subjectID]
	if !ok {
		return nil, ErrNotFound
	}
	return l.Clone(), nil
}

// SaveLedger stores a copy of l when versions match.
func (m *Memory) SaveLedger(_ context.Context, subjectID string, l *ledger.Ledger) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stored int64
	if cur, ok := m.ledgers[subjectID]; ok {
		stored = cur.Version
	} else if l.Version != 0 {
		return ErrConflict
	}
	if stored != l.Version {
		return ErrConflict
	}
	l.Version++
	m.ledgers[subjectID] = l.Clone()
	return nil
}

// AppendInteraction adds rec, dropping the oldest records past the bound.
func (m *Memory) AppendInteraction(_ context.Context, rec models.InteractionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := append(m.interactions[rec.SubjectID], rec)
	if len(recs) > m.max {
		recs = append([]models.InteractionRecord(nil), recs[len(recs)-m.max:]...)
	}
	m.interactions[rec.SubjectID] = recs
	return nil
}

// ListRecentInteractions returns up to limit records, newest first.
func (m *Memory) ListRecentInteractions(_ context.Context, subjectID string, limit int) ([]models.InteractionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.interactions[subjectID]
	if limit <= 0 || limit > len(recs) {
		limit = len(recs)
	}
	out := make([]models.InteractionRecord, 0, limit)
	for i := len(recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}

// ListInteractionsSince returns records at or after since, oldest first.
func (m *Memory) ListInteractionsSince(_ context.Context, subjectID string, since time.Time) ([]models.InteractionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.InteractionRecord
	for _, r := range m.interactions[subjectID] {
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
