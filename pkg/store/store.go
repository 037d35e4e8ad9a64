// Package store defines persistence for ledgers and interaction records.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dailywell/aigov/pkg/ledger"
	"github.com/dailywell/aigov/pkg/models"
)

var (
	// ErrNotFound is returned by LoadLedger when the subject has no ledger yet.
	ErrNotFound = errors.New("ledger not found")
	// ErrConflict is returned by SaveLedger when the stored version moved on.
	ErrConflict = errors.New("ledger version conflict")
)

// Store persists ledgers and the interaction log.
type Store interface {
	// LoadLedger returns the stored ledger or ErrNotFound.
	LoadLedger(ctx context.Context, subjectID string) (*ledger.Ledger, error)
	// SaveLedger writes l if the stored version still equals l.Version, then
	// increments l.Version. A ledger with Version 0 must not exist yet.
	// Returns ErrConflict otherwise.
	SaveLedger(ctx context.Context, subjectID string, l *ledger.Ledger) error
	// AppendInteraction adds a record to the subject's log.
	AppendInteraction(ctx context.Context, rec models.InteractionRecord) error
	// ListRecentInteractions returns up to limit records, newest first.
	ListRecentInteractions(ctx context.Context, subjectID string, limit int) ([]models.InteractionRecord, error)
	// ListInteractionsSince returns records at or after since, oldest first.
	ListInteractionsSince(ctx context.Context, subjectID string, since time.Time) ([]models.InteractionRecord, error)
	// Close releases resources.
	Close() error
}
