package budget

import (
	"time"

	"github.com/dailywell/aigov/pkg/ledger"
	"github.com/dailywell/aigov/pkg/models"
)

// Status builds the usage snapshot for l after applying resets. Callers that
// must not persist the reset pass a clone.
func (c *Controller) Status(l *ledger.Ledger, now time.Time) models.UsageSnapshot {
	pol := c.policy.Get()
	l.ApplyResets(now)
	limits := pol.Limits(l.Plan)
	committed := l.Committed()

	s := models.UsageSnapshot{
		SubjectID:          l.SubjectID,
		Plan:               l.Plan,
		PeriodStart:        l.PeriodStart,
		TokensUsed:         l.TokensUsed,
		TokenLimit:         limits.MonthlyTokenLimit,
		TokensRemaining:    l.TokensRemaining(limits.MonthlyTokenLimit),
		PercentUsed:        l.PercentUsed(limits.MonthlyTokenLimit),
		TokensToday:        l.TokensToday,
		BilledUSD:          l.BilledUSD,
		ReservedUSD:        l.ReservedUSD,
		SoftCapUSD:         limits.SoftCapUSD,
		HardCapUSD:         limits.HardCapUSD,
		CostRemainingUSD:   l.CostRemainingUSD(limits.HardCapUSD),
		AtSoftCap:          committed >= limits.SoftCapUSD,
		AtHardCap:          committed >= limits.HardCapUSD,
		LocalRuleMessages:  l.Messages.LocalRule,
		LocalModelMessages: l.Messages.LocalModel,
		CloudMessages:      l.Messages.Cloud,
		MessagesToday:      l.MessagesToday,
		EfficiencyRatio:    l.EfficiencyRatio(),
		CategoryCalls:      make(map[models.Category]int64, len(l.CategoryCalls)),
		LifetimeTokens:     l.Lifetime.Tokens,
		LifetimeBilledUSD:  l.Lifetime.BilledUSD,
		LastCallAt:         l.LastCallAt,
	}
	for k, v := range l.CategoryCalls {
		s.CategoryCalls[k] = v
	}

	switch {
	case s.AtHardCap:
		s.Status = models.ReasonSLMFallback
	case l.TokensUsed >= limits.MonthlyTokenLimit:
		s.Status = models.ReasonCreditsDepleted
	case s.AtSoftCap:
		s.Status = models.ReasonSoftCap
	}
	return s
}
