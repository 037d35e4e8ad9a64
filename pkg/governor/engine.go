// Package governor is the public surface of the governance engine. It loads
// a subject's ledger, runs admission or accounting against it under a
// per-subject lock, and persists the result with optimistic versioning.
package governor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dailywell/aigov/pkg/accounting"
	"github.com/dailywell/aigov/pkg/budget"
	"github.com/dailywell/aigov/pkg/ledger"
	"github.com/dailywell/aigov/pkg/metrics"
	"github.com/dailywell/aigov/pkg/models"
	"github.com/dailywell/aigov/pkg/policy"
	"github.com/dailywell/aigov/pkg/report"
	"github.com/dailywell/aigov/pkg/router"
	"github.com/dailywell/aigov/pkg/store"
)

var (
	// ErrEmptySubject is returned when no subject id is given.
	ErrEmptySubject = errors.New("empty subject id")
	// ErrUnknownPlan is returned by UpdatePlan for unrecognised plans.
	ErrUnknownPlan = errors.New("unknown plan")
	// ErrUnknownIntent is returned by admission for unrecognised intents.
	ErrUnknownIntent = errors.New("unknown intent")

	errNoChange = errors.New("no change")
)

// DefaultMaxRetries bounds version-conflict retries per operation.
const DefaultMaxRetries = 5

// Options configures an Engine. The zero value is usable.
type Options struct {
	Logger             *zap.Logger
	Metrics            *metrics.Metrics
	Clock              func() time.Time
	StrictReservations bool
	ReservationTTL     time.Duration
	DefaultPlan        models.PlanTier
	MaxRetries         int
}

// Engine implements the governance operations.
type Engine struct {
	store      store.Store
	policy     *policy.Holder
	router     *router.Router
	admission  *budget.Controller
	accountant *accounting.Accountant
	reports    *report.Generator
	metrics    *metrics.Metrics
	logger     *zap.Logger
	locks      *keyedMutex

	now         func() time.Time
	defaultPlan models.PlanTier
	maxRetries  int
}

// New wires an Engine over st and the policy in p.
func New(st store.Store, p *policy.Holder, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	plan := opts.DefaultPlan
	if !plan.Valid() {
		plan = models.PlanFree
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}

	rt := router.New()
	admOpts := []budget.Option{budget.WithLogger(logger)}
	if opts.StrictReservations {
		admOpts = append(admOpts, budget.WithStrictReservations(opts.ReservationTTL))
	}

	return &Engine{
		store:       st,
		policy:      p,
		router:      rt,
		admission:   budget.New(p, rt, admOpts...),
		accountant:  accounting.New(p, st, logger),
		reports:     report.New(st, rt),
		metrics:     opts.Metrics,
		logger:      logger.Named("governor"),
		locks:       newKeyedMutex(),
		now:         clock,
		defaultPlan: plan,
		maxRetries:  retries,
	}
}

// Policy returns the policy holder the engine reads from.
func (e *Engine) Policy() *policy.Holder {
	return e.policy
}

// load returns the stored ledger or a fresh one for a new subject.
func (e *Engine) load(ctx context.Context, subjectID string) (*ledger.Ledger, error) {
	l, err := e.store.LoadLedger(ctx, subjectID)
	if errors.Is(err, store.ErrNotFound) {
		return ledger.New(subjectID, e.defaultPlan, e.now()), nil
	}
	if err != nil {
		e.metrics.ObserveStoreError("load")
		return nil, fmt.Errorf("load ledger %s: %w", subjectID, err)
	}
	return l, nil
}

// update runs fn on the subject's ledger under the subject lock and saves
// it. fn is re-run on a freshly loaded ledger after a version conflict, so
// it must derive everything from its argument.
func (e *Engine) update(ctx context.Context, subjectID string, fn func(l *ledger.Ledger, now time.Time) error) error {
	if subjectID == "" {
		return ErrEmptySubject
	}
	unlock := e.locks.Lock(subjectID)
	defer unlock()

	for attempt := 0; ; attempt++ {
		l, err := e.load(ctx, subjectID)
		if err != nil {
			return err
		}
		now := e.now()
		e.metrics.ObserveResets(l.ApplyResets(now))

		if err := fn(l, now); err != nil {
			if errors.Is(err, errNoChange) {
				return nil
			}
			return err
		}
		l.UpdatedAt = now

		err = e.store.SaveLedger(ctx, subjectID, l)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrConflict) {
			e.metrics.ObserveStoreError("save")
			return fmt.Errorf("save ledger %s: %w", subjectID, err)
		}
		if attempt >= e.maxRetries {
			return fmt.Errorf("save ledger %s after %d attempts: %w", subjectID, attempt+1, err)
		}
		e.metrics.ObserveConflict()
		e.logger.Debug("ledger version conflict, retrying",
			zap.String("subject", subjectID), zap.Int("attempt", attempt+1))
	}
}

// snapshot loads the ledger without locking and applies resets to the copy
// only. Used for display reads that may be slightly stale.
func (e *Engine) snapshot(ctx context.Context, subjectID string) (*ledger.Ledger, time.Time, error) {
	if subjectID == "" {
		return nil, time.Time{}, ErrEmptySubject
	}
	l, err := e.load(ctx, subjectID)
	if err != nil {
		return nil, time.Time{}, err
	}
	now := e.now()
	l.ApplyResets(now)
	return l, now, nil
}
