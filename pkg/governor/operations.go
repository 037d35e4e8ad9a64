package governor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dailywell/aigov/pkg/accounting"
	"github.com/dailywell/aigov/pkg/ledger"
	"github.com/dailywell/aigov/pkg/models"
)

// GetUsage returns the subject's current usage. The read is not serialised
// with writers and may trail an in-flight update.
func (e *Engine) GetUsage(ctx context.Context, subjectID string) (models.UsageSnapshot, error) {
	l, now, err := e.snapshot(ctx, subjectID)
	if err != nil {
		return models.UsageSnapshot{}, err
	}
	return e.admission.Status(l, now), nil
}

// CheckAvailability decides whether the subject may run an interaction of
// the given intent and which tier should serve it. When the ledger cannot
// be read or written the result degrades to local-only and the error is
// returned alongside it. Unknown intents are refused with ErrUnknownIntent
// before the ledger is touched.
func (e *Engine) CheckAvailability(ctx context.Context, subjectID string, intent models.Intent, complexity models.Complexity) (models.AdmissionResult, error) {
	if !intent.Valid() {
		return models.AdmissionResult{}, fmt.Errorf("%w %q", ErrUnknownIntent, intent)
	}
	var res models.AdmissionResult
	err := e.update(ctx, subjectID, func(l *ledger.Ledger, now time.Time) error {
		res = e.admission.Check(l, intent, complexity, now)
		return nil
	})
	if err != nil {
		e.logger.Warn("admission degraded to local", zap.String("subject", subjectID), zap.Error(err))
		res = e.unavailable(intent, complexity)
		e.metrics.ObserveAdmission(res)
		return res, err
	}
	e.metrics.ObserveAdmission(res)
	return res, nil
}

// PreviewAvailability runs admission against a snapshot and persists
// nothing. Rate-limit timestamps and reservations are not recorded, so the
// result is advisory.
func (e *Engine) PreviewAvailability(ctx context.Context, subjectID string, intent models.Intent, complexity models.Complexity) (models.AdmissionResult, error) {
	if !intent.Valid() {
		return models.AdmissionResult{}, fmt.Errorf("%w %q", ErrUnknownIntent, intent)
	}
	l, now, err := e.snapshot(ctx, subjectID)
	if err != nil {
		return e.unavailable(intent, complexity), err
	}
	res := e.admission.Check(l, intent, complexity, now)
	res.ReservationID = ""
	res.ReservedUSD = 0
	return res, nil
}

func (e *Engine) unavailable(intent models.Intent, complexity models.Complexity) models.AdmissionResult {
	return models.AdmissionResult{
		Allowed:         true,
		AllowedCloud:    false,
		RecommendedTier: e.router.Resolve("", intent, complexity, false).Tier,
		BlockReason:     models.ReasonLedgerUnavailable,
		Intent:          intent,
	}
}

// CanSpendAdditional reports whether a call with the given raw provider cost
// would stay under the subject's hard cap.
func (e *Engine) CanSpendAdditional(ctx context.Context, subjectID string, rawCostUSD float64) (bool, error) {
	l, now, err := e.snapshot(ctx, subjectID)
	if err != nil {
		return false, err
	}
	return e.admission.CanSpendAdditional(l, rawCostUSD, now), nil
}

// RecordCompletedCall prices a finished interaction, updates the ledger and
// appends the interaction record. Invalid calls are rejected without
// recording anything.
func (e *Engine) RecordCompletedCall(ctx context.Context, subjectID string, call models.CompletedCall) (models.InteractionRecord, error) {
	if err := accounting.Validate(call); err != nil {
		e.metrics.ObserveRejected()
		e.logger.Warn("rejected usage", zap.String("subject", subjectID), zap.Error(err))
		return models.InteractionRecord{}, err
	}

	var rec models.InteractionRecord
	err := e.update(ctx, subjectID, func(l *ledger.Ledger, now time.Time) error {
		e.admission.Settle(l, call.ReservationID)
		r, err := e.accountant.Apply(l, call, now)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return models.InteractionRecord{}, err
	}

	// The ledger is authoritative; a missing log entry only affects reports.
	if err := e.accountant.Append(ctx, rec); err != nil {
		e.metrics.ObserveStoreError("append")
		e.logger.Error("interaction log append failed",
			zap.String("subject", subjectID), zap.String("record", rec.ID), zap.Error(err))
	}
	e.metrics.ObserveInteraction(rec)
	return rec, nil
}

// RecordExternalUsage accounts for usage that happened outside admission,
// such as a scheduled report or an image scan run by another service. The
// intent selects the category the call is counted under; empty means
// IntentExternal.
func (e *Engine) RecordExternalUsage(ctx context.Context, subjectID string, inputTokens, outputTokens int64, tier models.ExecutionTier, intent models.Intent) (models.InteractionRecord, error) {
	if intent == "" {
		intent = models.IntentExternal
	}
	return e.RecordCompletedCall(ctx, subjectID, models.CompletedCall{
		Intent:       intent,
		Tier:         tier,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Source:       models.SourceExternal,
	})
}

// ReleaseReservation returns a strict-mode reservation to the budget after a
// call fails or is cancelled.
func (e *Engine) ReleaseReservation(ctx context.Context, subjectID, reservationID string) error {
	return e.update(ctx, subjectID, func(l *ledger.Ledger, _ time.Time) error {
		return e.admission.Release(l, reservationID)
	})
}

// UpdatePlan changes the subject's plan. Period counters are kept.
func (e *Engine) UpdatePlan(ctx context.Context, subjectID string, plan models.PlanTier) error {
	if !plan.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	return e.update(ctx, subjectID, func(l *ledger.Ledger, _ time.Time) error {
		if l.Plan == plan && l.Version > 0 {
			return errNoChange
		}
		e.logger.Info("plan changed",
			zap.String("subject", subjectID),
			zap.String("from", string(l.Plan)),
			zap.String("to", string(plan)),
		)
		l.Plan = plan
		l.Trial = plan == models.PlanTrial
		return nil
	})
}

// ForceReset zeroes the subject's period counters. Calling it again in the
// same period changes nothing. Reports whether the ledger changed.
func (e *Engine) ForceReset(ctx context.Context, subjectID string) (bool, error) {
	var changed bool
	err := e.update(ctx, subjectID, func(l *ledger.Ledger, now time.Time) error {
		changed = l.ForceReset(now)
		if !changed {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if changed {
		e.logger.Info("ledger force reset", zap.String("subject", subjectID))
	}
	return changed, nil
}

// MonthlyReport summarises the month containing periodStart, or the current
// month when periodStart is zero. Returns nil when there is no usage.
func (e *Engine) MonthlyReport(ctx context.Context, subjectID string, periodStart time.Time) (*models.MonthlyUsageReport, error) {
	if subjectID == "" {
		return nil, ErrEmptySubject
	}
	if periodStart.IsZero() {
		periodStart = e.now()
	}
	return e.reports.MonthlyReport(ctx, subjectID, periodStart)
}

// RecentInteractions returns up to limit records, newest first.
func (e *Engine) RecentInteractions(ctx context.Context, subjectID string, limit int) ([]models.InteractionRecord, error) {
	if subjectID == "" {
		return nil, ErrEmptySubject
	}
	recs, err := e.store.ListRecentInteractions(ctx, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent interactions: %w", err)
	}
	return recs, nil
}

// RoutingIntentStats aggregates the last limit interactions by intent.
func (e *Engine) RoutingIntentStats(ctx context.Context, subjectID string, limit int) ([]models.IntentStat, error) {
	if subjectID == "" {
		return nil, ErrEmptySubject
	}
	return e.reports.IntentStats(ctx, subjectID, limit)
}

// RoutingRecommendations suggests routing changes for the subject.
func (e *Engine) RoutingRecommendations(ctx context.Context, subjectID string) ([]models.Recommendation, error) {
	stats, err := e.RoutingIntentStats(ctx, subjectID, 0)
	if err != nil {
		return nil, err
	}
	usage, err := e.GetUsage(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return e.reports.Recommendations(stats, usage), nil
}
