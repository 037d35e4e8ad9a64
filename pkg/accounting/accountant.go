// Package accounting turns completed interactions into billed cost, ledger
// updates, and interaction records.
package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/dailywell/aigov/pkg/ledger"
	"github.com/dailywell/aigov/pkg/models"
	"github.com/dailywell/aigov/pkg/policy"
	"github.com/dailywell/aigov/pkg/store"
)

// ErrInvalidUsage is returned for negative token counts or unknown tiers or intents.
var ErrInvalidUsage = errors.New("invalid usage")

// Accountant prices and records completed interactions.
type Accountant struct {
	policy *policy.Holder
	store  store.Store
	logger *zap.Logger
}

// New creates an Accountant.
func New(p *policy.Holder, st store.Store, logger *zap.Logger) *Accountant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accountant{policy: p, store: st, logger: logger.Named("accounting")}
}

// Validate checks a call before anything is recorded.
func Validate(call models.CompletedCall) error {
	if call.InputTokens < 0 || call.OutputTokens < 0 {
		return fmt.Errorf("%w: negative token count (%d in, %d out)", ErrInvalidUsage, call.InputTokens, call.OutputTokens)
	}
	if !call.Tier.Valid() {
		return fmt.Errorf("%w: unknown tier %q", ErrInvalidUsage, call.Tier)
	}
	if !call.Intent.Valid() {
		return fmt.Errorf("%w: unknown intent %q", ErrInvalidUsage, call.Intent)
	}
	return nil
}

// Apply prices call, updates l, and returns the record to append. Invalid
// calls are logged and leave l untouched.
func (a *Accountant) Apply(l *ledger.Ledger, call models.CompletedCall, now time.Time) (models.InteractionRecord, error) {
	if err := Validate(call); err != nil {
		a.logger.Warn("rejected usage",
			zap.String("subject", l.SubjectID),
			zap.Int64("input_tokens", call.InputTokens),
			zap.Int64("output_tokens", call.OutputTokens),
			zap.String("tier", string(call.Tier)),
			zap.Error(err),
		)
		return models.InteractionRecord{}, err
	}

	billed := a.policy.Get().BilledCost(call.Tier, call.InputTokens, call.OutputTokens)
	if err := l.RecordTokens(call.InputTokens, call.OutputTokens, call.Tier); err != nil {
		return models.InteractionRecord{}, err
	}
	if err := l.RecordBilledCost(billed); err != nil {
		return models.InteractionRecord{}, err
	}
	l.RecordMessage(call.Tier, call.Intent)
	l.UpdatedAt = now

	source := call.Source
	if source == "" {
		source = models.SourceCall
	}
	return models.InteractionRecord{
		ID:           ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		SubjectID:    l.SubjectID,
		Timestamp:    now,
		InputTokens:  call.InputTokens,
		OutputTokens: call.OutputTokens,
		Tier:         call.Tier,
		Intent:       call.Intent,
		Source:       source,
		BilledUSD:    billed,
		Duration:     call.Duration,
	}, nil
}

// Append writes rec to the interaction log.
func (a *Accountant) Append(ctx context.Context, rec models.InteractionRecord) error {
	if err := a.store.AppendInteraction(ctx, rec); err != nil {
		return fmt.Errorf("append %s: %w", rec.ID, err)
	}
	return nil
}
