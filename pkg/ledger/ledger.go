// Package ledger keeps the per-subject usage counters for the current period
// and rolls them over lazily when a period boundary has passed.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/dailywell/aigov/pkg/models"
)

// ErrNegativeAmount is returned when a cost or token delta is negative.
var ErrNegativeAmount = errors.New("negative amount")

// MaxHistory bounds the number of period snapshots kept on a ledger.
const MaxHistory = 12

// MessageCounts splits the period's messages by where they were served.
type MessageCounts struct {
	LocalRule  int64 `json:"local_rule"`
	LocalModel int64 `json:"local_model"`
	Cloud      int64 `json:"cloud"`
}

// Total returns all messages in the period.
func (m MessageCounts) Total() int64 {
	return m.LocalRule + m.LocalModel + m.Cloud
}

// Lifetime counters are never touched by period resets.
type Lifetime struct {
	Tokens    int64   `json:"tokens"`
	BilledUSD float64 `json:"billed_usd"`
	Messages  int64   `json:"messages"`
}

// Reservation holds billed USD set aside at admission in strict mode.
type Reservation struct {
	ID        string               `json:"id"`
	Intent    models.Intent        `json:"intent"`
	Tier      models.ExecutionTier `json:"tier"`
	AmountUSD float64              `json:"amount_usd"`
	CreatedAt time.Time            `json:"created_at"`
}

// Ledger is the mutable usage state for one subject.
type Ledger struct {
	SubjectID string          `json:"subject_id"`
	Plan      models.PlanTier `json:"plan"`
	Trial     bool            `json:"trial"`
	Version   int64           `json:"version"`

	PeriodStart   time.Time                 `json:"period_start"`
	TokensUsed    int64                     `json:"tokens_used"`
	LocalTokens   int64                     `json:"local_tokens"`
	Messages      MessageCounts             `json:"messages"`
	CategoryCalls map[models.Category]int64 `json:"category_calls"`
	BilledUSD     float64                   `json:"billed_usd"`

	ReservedUSD  float64                `json:"reserved_usd"`
	Reservations map[string]Reservation `json:"reservations,omitempty"`

	LastCallAt  time.Time   `json:"last_call_at"`
	RecentCalls []time.Time `json:"recent_calls"`

	LastDailyReset    time.Time               `json:"last_daily_reset"`
	TokensToday       int64                   `json:"tokens_today"`
	MessagesToday     int64                   `json:"messages_today"`
	DailyIntentCalls  map[models.Intent]int64 `json:"daily_intent_calls"`
	LastWeeklyReset   time.Time               `json:"last_weekly_reset"`
	WeeklyIntentCalls map[models.Intent]int64 `json:"weekly_intent_calls"`
	LastMonthlyReset  time.Time               `json:"last_monthly_reset"`

	Lifetime  Lifetime                `json:"lifetime"`
	History   []models.PeriodSnapshot `json:"history,omitempty"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// New returns an empty ledger whose periods start at now.
func New(subjectID string, plan models.PlanTier, now time.Time) *Ledger {
	now = now.UTC()
	return &Ledger{
		SubjectID:         subjectID,
		Plan:              plan,
		Trial:             plan == models.PlanTrial,
		PeriodStart:       MonthStart(now),
		CategoryCalls:     make(map[models.Category]int64),
		DailyIntentCalls:  make(map[models.Intent]int64),
		WeeklyIntentCalls: make(map[models.Intent]int64),
		LastDailyReset:    DayStart(now),
		LastWeeklyReset:   WeekStart(now),
		LastMonthlyReset:  MonthStart(now),
		UpdatedAt:         now,
	}
}

// RecordTokens adds tokens to the period and lifetime totals. Cloud tokens
// count against the plan's token limits; local tokens are tracked separately.
func (l *Ledger) RecordTokens(inputTokens, outputTokens int64, tier models.ExecutionTier) error {
	if inputTokens < 0 || outputTokens < 0 {
		return fmt.Errorf("record tokens: %w", ErrNegativeAmount)
	}
	total := inputTokens + outputTokens
	if tier.IsCloud() {
		l.TokensUsed += total
		l.TokensToday += total
	} else {
		l.LocalTokens += total
	}
	l.Lifetime.Tokens += total
	return nil
}

// RecordBilledCost adds to the period's billed USD. Billed USD only grows
// within a period.
func (l *Ledger) RecordBilledCost(amountUSD float64) error {
	if amountUSD < 0 {
		return fmt.Errorf("record billed cost: %w", ErrNegativeAmount)
	}
	l.BilledUSD += amountUSD
	l.Lifetime.BilledUSD += amountUSD
	return nil
}

// RecordMessage counts one served message for the tier and intent.
func (l *Ledger) RecordMessage(tier models.ExecutionTier, intent models.Intent) {
	switch tier {
	case models.TierLocalRule:
		l.Messages.LocalRule++
	case models.TierLocalSmallModel:
		l.Messages.LocalModel++
	default:
		l.Messages.Cloud++
	}
	l.ensureMaps()
	if c := intent.Category(); c != "" {
		l.CategoryCalls[c]++
	}
	l.DailyIntentCalls[intent]++
	l.WeeklyIntentCalls[intent]++
	l.MessagesToday++
	l.Lifetime.Messages++
}

// TokensRemaining returns how many cloud tokens are left under limit.
func (l *Ledger) TokensRemaining(limit int64) int64 {
	if r := limit - l.TokensUsed; r > 0 {
		return r
	}
	return 0
}

// PercentUsed returns cloud token usage as a percentage of limit.
func (l *Ledger) PercentUsed(limit int64) float64 {
	if limit <= 0 {
		return 100
	}
	return float64(l.TokensUsed) / float64(limit) * 100
}

// CostRemainingUSD returns the billed headroom under hardCapUSD.
func (l *Ledger) CostRemainingUSD(hardCapUSD float64) float64 {
	if r := hardCapUSD - l.BilledUSD; r > 0 {
		return r
	}
	return 0
}

// EfficiencyRatio is the share of messages served locally, 0 with no messages.
func (l *Ledger) EfficiencyRatio() float64 {
	total := l.Messages.Total()
	if total == 0 {
		return 0
	}
	return float64(l.Messages.LocalRule+l.Messages.LocalModel) / float64(total)
}

// Committed is billed USD plus outstanding reservations.
func (l *Ledger) Committed() float64 {
	return l.BilledUSD + l.ReservedUSD
}

// Reserve sets aside amountUSD under id.
func (l *Ledger) Reserve(r Reservation) {
	if l.Reservations == nil {
		l.Reservations = make(map[string]Reservation)
	}
	l.Reservations[r.ID] = r
	l.ReservedUSD += r.AmountUSD
}

// Release drops a reservation and reports whether it existed.
func (l *Ledger) Release(id string) (Reservation, bool) {
	r, ok := l.Reservations[id]
	if !ok {
		return Reservation{}, false
	}
	delete(l.Reservations, id)
	l.ReservedUSD -= r.AmountUSD
	if l.ReservedUSD < 1e-12 {
		l.ReservedUSD = 0
	}
	return r, true
}

// ExpireReservations releases reservations older than ttl and returns how many.
func (l *Ledger) ExpireReservations(now time.Time, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	n := 0
	for id, r := range l.Reservations {
		if now.Sub(r.CreatedAt) >= ttl {
			l.Release(id)
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (l *Ledger) Clone() *Ledger {
	c := *l
	c.CategoryCalls = cloneMap(l.CategoryCalls)
	c.DailyIntentCalls = cloneMap(l.DailyIntentCalls)
	c.WeeklyIntentCalls = cloneMap(l.WeeklyIntentCalls)
	if l.Reservations != nil {
		c.Reservations = cloneMap(l.Reservations)
	}
	c.RecentCalls = append([]time.Time(nil), l.RecentCalls...)
	if l.History != nil {
		c.History = make([]models.PeriodSnapshot, len(l.History))
		for i, h := range l.History {
			h.CategoryCalls = cloneMap(h.CategoryCalls)
			c.History[i] = h
		}
	}
	return &c
}

func (l *Ledger) ensureMaps() {
	if l.CategoryCalls == nil {
		l.CategoryCalls = make(map[models.Category]int64)
	}
	if l.DailyIntentCalls == nil {
		l.DailyIntentCalls = make(map[models.Intent]int64)
	}
	if l.WeeklyIntentCalls == nil {
		l.WeeklyIntentCalls = make(map[models.Intent]int64)
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
