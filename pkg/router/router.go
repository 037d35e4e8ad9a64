// Package router maps an admitted interaction to the execution tier that
// should serve it.
package router

import (
	"github.com/dailywell/aigov/pkg/models"
)

// Capability describes what an intent needs from a model.
type Capability struct {
	// PatternAnswerable intents can be served by deterministic rules.
	PatternAnswerable bool
	// Vision intents need image input.
	Vision bool
	// ComplexAnalysis intents need multi-step reasoning.
	ComplexAnalysis bool
}

// Capabilities is the static per-intent table. Unknown intents get the zero
// Capability, which routes like a plain chat message.
var Capabilities = map[models.Intent]Capability{
	models.IntentCoaching:       {},
	models.IntentInsight:        {PatternAnswerable: true},
	models.IntentExplanation:    {PatternAnswerable: true},
	models.IntentPlanGeneration: {ComplexAnalysis: true},
	models.IntentIdeaGeneration: {},
	models.IntentReport:         {ComplexAnalysis: true},
	models.IntentScan:           {Vision: true},
	models.IntentExternal:       {},
}

// Decision is a routed tier and why it was chosen.
type Decision struct {
	Tier   models.ExecutionTier `json:"tier"`
	Reason string               `json:"reason"`
}

// Router picks execution tiers.
type Router struct {
	caps map[models.Intent]Capability
}

// New creates a Router over the built-in capability table.
func New() *Router {
	return &Router{caps: Capabilities}
}

// Capability returns the table entry for an intent.
func (r *Router) Capability(intent models.Intent) Capability {
	return r.caps[intent]
}

// Resolve returns the tier for an interaction. The Free plan never reaches
// the cloud, whatever the admission said.
func (r *Router) Resolve(plan models.PlanTier, intent models.Intent, complexity models.Complexity, allowedCloud bool) Decision {
	c := r.caps[intent]

	if plan == models.PlanFree {
		return Decision{Tier: localTier(c), Reason: "free plan is served on-device"}
	}
	if !allowedCloud {
		return Decision{Tier: localTier(c), Reason: "cloud not allowed"}
	}
	if c.PatternAnswerable && complexity == models.ComplexitySimple {
		return Decision{Tier: models.TierLocalRule, Reason: "simple request answerable by rules"}
	}

	tier, reason := models.TierCloudA, "cheapest capable cloud tier"
	if c.Vision || c.ComplexAnalysis {
		tier, reason = models.TierCloudB, "intent needs vision or complex analysis"
	}
	if complexity == models.ComplexityComplex {
		tier, reason = tier.Next(), reason+", bumped for complex request"
	}
	return Decision{Tier: tier, Reason: reason}
}

func localTier(c Capability) models.ExecutionTier {
	if c.PatternAnswerable {
		return models.TierLocalRule
	}
	return models.TierLocalSmallModel
}
