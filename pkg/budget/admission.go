// Package budget decides whether an interaction may proceed and whether it
// may use a cloud tier, given the subject's ledger and the active policy.
package budget

import (
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/dailywell/aigov/pkg/ledger"
	"github.com/dailywell/aigov/pkg/models"
	"github.com/dailywell/aigov/pkg/policy"
	"github.com/dailywell/aigov/pkg/ratelimit"
	"github.com/dailywell/aigov/pkg/router"
)

// ErrUnknownReservation is returned when releasing a reservation that does not exist.
var ErrUnknownReservation = errors.New("unknown reservation")

// DefaultReservationTTL is how long an unsettled reservation holds budget.
const DefaultReservationTTL = 10 * time.Minute

// Controller evaluates admission in a fixed order; the first failing check
// decides the outcome.
type Controller struct {
	policy *policy.Holder
	router *router.Router
	logger *zap.Logger

	strict         bool
	reservationTTL time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithStrictReservations reserves the estimated billed cost of every cloud
// admission until it is settled, released, or older than ttl.
func WithStrictReservations(ttl time.Duration) Option {
	return func(c *Controller) {
		c.strict = true
		if ttl > 0 {
			c.reservationTTL = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Controller.
func New(p *policy.Holder, r *router.Router, opts ...Option) *Controller {
	c := &Controller{
		policy:         p,
		router:         r,
		logger:         zap.NewNop(),
		reservationTTL: DefaultReservationTTL,
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.Named("admission")
	return c
}

// Strict reports whether reservations are enabled.
func (c *Controller) Strict() bool {
	return c.strict
}

// Check decides admission for one interaction and mutates l: resets are
// applied, and an admitted cloud call is noted in the rate-limit window and,
// in strict mode, reserved.
func (c *Controller) Check(l *ledger.Ledger, intent models.Intent, complexity models.Complexity, now time.Time) models.AdmissionResult {
	pol := c.policy.Get()
	l.ApplyResets(now)
	if c.strict {
		l.ExpireReservations(now, c.reservationTTL)
	}

	limits := pol.Limits(l.Plan)
	res := c.headroom(l, limits)
	res.Plan = l.Plan
	res.Intent = intent

	var retry time.Duration
	res.Allowed, res.AllowedCloud, res.BlockReason, retry = c.evaluate(l, pol, limits, intent, now)
	if l.Plan == models.PlanFree {
		res.AllowedCloud = false
	}
	res.RetryAfter = retry

	dec := c.router.Resolve(l.Plan, intent, complexity, res.AllowedCloud)
	res.RecommendedTier = dec.Tier

	if c.strict && dec.Tier.IsCloud() {
		estimate := pol.EstimatedBilledCost(dec.Tier, intent)
		if l.Committed()+estimate > limits.HardCapUSD {
			res.AllowedCloud = false
			res.BlockReason = models.ReasonHardCap
			res.RecommendedTier = c.router.Resolve(l.Plan, intent, complexity, false).Tier
		} else {
			id := ulid.Make().String()
			l.Reserve(ledger.Reservation{
				ID: id, Intent: intent, Tier: dec.Tier, AmountUSD: estimate, CreatedAt: now,
			})
			res.ReservationID = id
			res.ReservedUSD = estimate
		}
	}

	if res.RecommendedTier.IsCloud() {
		ratelimit.FromPolicy(pol).Note(l, now)
	}

	c.logger.Debug("admission decided",
		zap.String("subject", l.SubjectID),
		zap.String("plan", string(l.Plan)),
		zap.String("intent", string(intent)),
		zap.Bool("allowed", res.Allowed),
		zap.Bool("allowed_cloud", res.AllowedCloud),
		zap.String("tier", string(res.RecommendedTier)),
		zap.String("reason", string(res.BlockReason)),
		zap.String("policy_version", pol.Version),
	)
	return res
}

func (c *Controller) evaluate(l *ledger.Ledger, pol *policy.Policy, limits policy.PlanLimits, intent models.Intent, now time.Time) (allowed, cloud bool, reason models.BlockReason, retry time.Duration) {
	if ok, wait := ratelimit.FromPolicy(pol).Allow(l, now); !ok {
		return false, false, models.ReasonRateLimited, wait
	}

	quotas := pol.IntentQuotasFor(l.Plan, l.Trial)
	if limit, window := quotas.Limit(intent); window != models.WindowNone {
		if limit <= 0 {
			return false, false, models.ReasonNotPremium, 0
		}
		used := l.DailyIntentCalls[intent]
		if window == models.WindowWeekly {
			used = l.WeeklyIntentCalls[intent]
		}
		if used >= int64(limit) {
			return false, false, models.ReasonDailyLimit, 0
		}
	}
	if limits.MaxMessagesPerDay > 0 && l.MessagesToday >= limits.MaxMessagesPerDay {
		return false, false, models.ReasonDailyLimit, 0
	}

	if maxTokens := pol.MaxTokensPerDay(l.Plan, l.Trial); maxTokens != policy.Unlimited && l.TokensToday > maxTokens {
		return false, false, models.ReasonDailyLimit, 0
	}

	committed := l.Committed()
	switch {
	case committed >= limits.HardCapUSD:
		return true, false, models.ReasonHardCap, 0
	case l.TokensUsed >= limits.MonthlyTokenLimit:
		return true, false, models.ReasonCreditsDepleted, 0
	case committed >= limits.SoftCapUSD:
		return true, true, models.ReasonSoftCap, 0
	default:
		return true, true, models.ReasonNone, 0
	}
}

func (c *Controller) headroom(l *ledger.Ledger, limits policy.PlanLimits) models.AdmissionResult {
	committed := l.Committed()
	usdRemaining := limits.HardCapUSD - committed
	if usdRemaining < 0 {
		usdRemaining = 0
	}
	var pct float64
	if limits.HardCapUSD > 0 {
		pct = usdRemaining / limits.HardCapUSD * 100
	}
	return models.AdmissionResult{
		TokensRemaining:  l.TokensRemaining(limits.MonthlyTokenLimit),
		USDRemaining:     usdRemaining,
		PercentRemaining: pct,
		AtSoftCap:        committed >= limits.SoftCapUSD,
		AtHardCap:        committed >= limits.HardCapUSD,
	}
}

// CanSpendAdditional reports whether a call with the given raw provider cost
// would keep billed spend strictly under the hard cap.
func (c *Controller) CanSpendAdditional(l *ledger.Ledger, rawCostUSD float64, now time.Time) bool {
	if rawCostUSD < 0 {
		return false
	}
	pol := c.policy.Get()
	l.ApplyResets(now)
	return l.Committed()+pol.Bill(rawCostUSD) < pol.Limits(l.Plan).HardCapUSD
}

// Settle drops the reservation backing a completed call. Missing or expired
// reservations are ignored; the actual cost is recorded either way.
func (c *Controller) Settle(l *ledger.Ledger, reservationID string) {
	if reservationID == "" {
		return
	}
	if _, ok := l.Release(reservationID); !ok {
		c.logger.Debug("settling unknown reservation",
			zap.String("subject", l.SubjectID), zap.String("reservation", reservationID))
	}
}

// Release returns a reserved amount to the budget when a call fails or is
// cancelled.
func (c *Controller) Release(l *ledger.Ledger, reservationID string) error {
	if _, ok := l.Release(reservationID); !ok {
		return ErrUnknownReservation
	}
	return nil
}
