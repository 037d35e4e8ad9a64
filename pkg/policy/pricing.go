package policy

import "github.com/dailywell/aigov/pkg/models"

// RawCost is the provider cost in USD. Local tiers cost nothing.
func (p *Policy) RawCost(tier models.ExecutionTier, inputTokens, outputTokens int64) float64 {
	if tier.IsFree() {
		return 0
	}
	price, ok := p.Pricing[tier]
	if !ok {
		return 0
	}
	return float64(inputTokens)*price.InputPerMTok/1_000_000 +
		float64(outputTokens)*price.OutputPerMTok/1_000_000
}

// Bill applies the internal multiplier to a raw cost.
func (p *Policy) Bill(rawUSD float64) float64 {
	return rawUSD * p.InternalMultiplier
}

// BilledCost is RawCost scaled by the internal multiplier.
func (p *Policy) BilledCost(tier models.ExecutionTier, inputTokens, outputTokens int64) float64 {
	return p.Bill(p.RawCost(tier, inputTokens, outputTokens))
}

// EstimatedBilledCost prices a typical call for the intent on the given tier.
func (p *Policy) EstimatedBilledCost(tier models.ExecutionTier, intent models.Intent) float64 {
	e := p.Estimate(intent)
	return p.BilledCost(tier, e.Input, e.Output)
}
