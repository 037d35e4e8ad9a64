package policy

import "github.com/dailywell/aigov/pkg/models"

// IntentQuotasFor returns the per-intent caps for a plan. Trial state takes
// precedence over the plan; unrecognised plans get DefaultQuotas.
func (p *Policy) IntentQuotasFor(plan models.PlanTier, isTrial bool) models.IntentQuotas {
	if isTrial {
		return p.TrialQuotas
	}
	if !plan.Valid() {
		return p.DefaultQuotas
	}
	if q, ok := p.Quotas[plan]; ok {
		return q
	}
	return p.DefaultQuotas
}

// MaxTokensPerDay returns the daily token cap, Unlimited for paid plans.
func (p *Policy) MaxTokensPerDay(plan models.PlanTier, isTrial bool) int64 {
	if isTrial {
		plan = models.PlanTrial
	}
	switch plan {
	case models.PlanFree, models.PlanTrial:
		if l := p.Limits(plan).MaxTokensPerDay; l > 0 {
			return l
		}
		return Unlimited
	default:
		return Unlimited
	}
}

// Limits returns the period caps for a plan, DefaultPlan when unrecognised.
func (p *Policy) Limits(plan models.PlanTier) PlanLimits {
	if l, ok := p.Plans[plan]; ok && plan.Valid() {
		return l
	}
	return p.DefaultPlan
}

// Estimate returns the expected token counts for a typical call.
func (p *Policy) Estimate(intent models.Intent) TokenEstimate {
	if e, ok := p.Estimates[intent]; ok {
		return e
	}
	return p.DefaultEstimate
}
