// Package policy holds the static plan, quota and pricing tables that drive
// admission, routing and cost accounting.
package policy

import (
	"math"

	"github.com/dailywell/aigov/pkg/models"
)

// Unlimited marks a cap that never triggers.
const Unlimited int64 = math.MaxInt64

// PlanLimits are the per-plan caps for one monthly period.
type PlanLimits struct {
	MonthlyTokenLimit int64   `json:"monthly_token_limit" yaml:"monthly_token_limit"`
	MaxMessagesPerDay int64   `json:"max_messages_per_day" yaml:"max_messages_per_day"`
	MaxTokensPerDay   int64   `json:"max_tokens_per_day,omitempty" yaml:"max_tokens_per_day,omitempty"`
	SoftCapUSD        float64 `json:"soft_cap_usd" yaml:"soft_cap_usd"`
	HardCapUSD        float64 `json:"hard_cap_usd" yaml:"hard_cap_usd"`
}

// Pricing is the provider price for a tier in USD per million tokens.
type Pricing struct {
	InputPerMTok  float64 `json:"input_per_mtok" yaml:"input_per_mtok"`
	OutputPerMTok float64 `json:"output_per_mtok" yaml:"output_per_mtok"`
}

// RateLimit bounds how often a subject may make cloud calls.
type RateLimit struct {
	MinSecondsBetweenCalls int `json:"min_seconds_between_calls" yaml:"min_seconds_between_calls"`
	MaxCallsPerMinute      int `json:"max_calls_per_minute" yaml:"max_calls_per_minute"`
}

// TokenEstimate is the expected size of a typical call for an intent.
type TokenEstimate struct {
	Input  int64 `json:"input" yaml:"input"`
	Output int64 `json:"output" yaml:"output"`
}

// Policy is the complete rule table. A Policy is never mutated after it is
// published through a Holder; reloads swap in a new value.
type Policy struct {
	Version            string                                  `json:"version" yaml:"version"`
	InternalMultiplier float64                                 `json:"internal_multiplier" yaml:"internal_multiplier"`
	Plans              map[models.PlanTier]PlanLimits          `json:"plans" yaml:"plans"`
	DefaultPlan        PlanLimits                              `json:"default_plan" yaml:"default_plan"`
	Pricing            map[models.ExecutionTier]Pricing        `json:"pricing" yaml:"pricing"`
	Quotas             map[models.PlanTier]models.IntentQuotas `json:"quotas" yaml:"quotas"`
	TrialQuotas        models.IntentQuotas                     `json:"trial_quotas" yaml:"trial_quotas"`
	DefaultQuotas      models.IntentQuotas                     `json:"default_quotas" yaml:"default_quotas"`
	RateLimit          RateLimit                               `json:"rate_limit" yaml:"rate_limit"`
	Estimates          map[models.Intent]TokenEstimate         `json:"estimates" yaml:"estimates"`
	DefaultEstimate    TokenEstimate                           `json:"default_estimate" yaml:"default_estimate"`
}

// Default returns the built-in rule table.
func Default() *Policy {
	paid := models.IntentQuotas{
		InsightsPerDay: 10, CoachingPerDay: 50, ExplanationsPerDay: 20,
		PlansPerDay: 3, IdeasPerDay: 10, ReportsPerWeek: 2,
	}
	paidLimits := PlanLimits{
		MonthlyTokenLimit: 1_500_000, MaxMessagesPerDay: 200,
		SoftCapUSD: 2.00, HardCapUSD: 3.00,
	}

	return &Policy{
		Version:            "builtin",
		InternalMultiplier: 1.5,
		Plans: map[models.PlanTier]PlanLimits{
			models.PlanFree: {
				MonthlyTokenLimit: 100_000, MaxMessagesPerDay: 20, MaxTokensPerDay: 10_000,
				SoftCapUSD: 0.05, HardCapUSD: 0.10,
			},
			models.PlanTrial: {
				MonthlyTokenLimit: 300_000, MaxMessagesPerDay: 50, MaxTokensPerDay: 50_000,
				SoftCapUSD: 0.75, HardCapUSD: 1.00,
			},
			models.PlanMonthly: paidLimits,
			models.PlanAnnual:  paidLimits,
			models.PlanLifetime: {
				MonthlyTokenLimit: 1_200_000, MaxMessagesPerDay: 150,
				SoftCapUSD: 1.50, HardCapUSD: 2.50,
			},
			models.PlanStudent: {
				MonthlyTokenLimit: 800_000, MaxMessagesPerDay: 120,
				SoftCapUSD: 1.00, HardCapUSD: 1.50,
			},
			models.PlanFamilyOwner: {
				MonthlyTokenLimit: 3_000_000, MaxMessagesPerDay: 300,
				SoftCapUSD: 4.00, HardCapUSD: 6.00,
			},
			models.PlanFamilyMember: {
				MonthlyTokenLimit: 1_000_000, MaxMessagesPerDay: 150,
				SoftCapUSD: 1.50, HardCapUSD: 2.00,
			},
		},
		DefaultPlan: PlanLimits{
			MonthlyTokenLimit: 500_000, MaxMessagesPerDay: 100,
			SoftCapUSD: 1.00, HardCapUSD: 1.50,
		},
		Pricing: map[models.ExecutionTier]Pricing{
			models.TierLocalRule:       {},
			models.TierLocalSmallModel: {},
			models.TierCloudA:          {InputPerMTok: 1.00, OutputPerMTok: 5.00},
			models.TierCloudB:          {InputPerMTok: 3.00, OutputPerMTok: 15.00},
			models.TierCloudC:          {InputPerMTok: 15.00, OutputPerMTok: 75.00},
		},
		Quotas: map[models.PlanTier]models.IntentQuotas{
			models.PlanFree: {CoachingPerDay: 5, ExplanationsPerDay: 3},
			models.PlanTrial: {
				InsightsPerDay: 5, CoachingPerDay: 30, ExplanationsPerDay: 10,
				PlansPerDay: 2, IdeasPerDay: 5, ReportsPerWeek: 1,
			},
			models.PlanMonthly:  paid,
			models.PlanAnnual:   paid,
			models.PlanLifetime: paid,
			models.PlanStudent: {
				InsightsPerDay: 5, CoachingPerDay: 30, ExplanationsPerDay: 20,
				PlansPerDay: 2, IdeasPerDay: 5, ReportsPerWeek: 1,
			},
			models.PlanFamilyOwner: {
				InsightsPerDay: 15, CoachingPerDay: 75, ExplanationsPerDay: 30,
				PlansPerDay: 5, IdeasPerDay: 15, ReportsPerWeek: 3,
			},
			models.PlanFamilyMember: {
				InsightsPerDay: 8, CoachingPerDay: 40, ExplanationsPerDay: 15,
				PlansPerDay: 2, IdeasPerDay: 8, ReportsPerWeek: 1,
			},
		},
		TrialQuotas: models.IntentQuotas{
			InsightsPerDay: 5, CoachingPerDay: 30, ExplanationsPerDay: 10,
			PlansPerDay: 2, IdeasPerDay: 5, ReportsPerWeek: 1,
		},
		DefaultQuotas: models.IntentQuotas{
			InsightsPerDay: 5, CoachingPerDay: 25, ExplanationsPerDay: 10,
			PlansPerDay: 1, IdeasPerDay: 5, ReportsPerWeek: 1,
		},
		RateLimit: RateLimit{MinSecondsBetweenCalls: 3, MaxCallsPerMinute: 10},
		Estimates: map[models.Intent]TokenEstimate{
			models.IntentCoaching:       {Input: 1500, Output: 400},
			models.IntentInsight:        {Input: 2000, Output: 500},
			models.IntentExplanation:    {Input: 800, Output: 300},
			models.IntentPlanGeneration: {Input: 3000, Output: 1500},
			models.IntentIdeaGeneration: {Input: 1200, Output: 800},
			models.IntentReport:         {Input: 6000, Output: 1500},
			models.IntentScan:           {Input: 2500, Output: 600},
		},
		DefaultEstimate: TokenEstimate{Input: 1500, Output: 500},
	}
}
