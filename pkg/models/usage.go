package models

import "time"

// UsageSnapshot is the read model for a subject's current period.
type UsageSnapshot struct {
	SubjectID          string             `json:"subject_id"`
	Plan               PlanTier           `json:"plan"`
	PeriodStart        time.Time          `json:"period_start"`
	TokensUsed         int64              `json:"tokens_used"`
	TokenLimit         int64              `json:"token_limit"`
	TokensRemaining    int64              `json:"tokens_remaining"`
	PercentUsed        float64            `json:"percent_used"`
	TokensToday        int64              `json:"tokens_today"`
	BilledUSD          float64            `json:"billed_usd"`
	ReservedUSD        float64            `json:"reserved_usd"`
	SoftCapUSD         float64            `json:"soft_cap_usd"`
	HardCapUSD         float64            `json:"hard_cap_usd"`
	CostRemainingUSD   float64            `json:"cost_remaining_usd"`
	AtSoftCap          bool               `json:"at_soft_cap"`
	AtHardCap          bool               `json:"at_hard_cap"`
	Status             BlockReason        `json:"status,omitempty"`
	LocalRuleMessages  int64              `json:"local_rule_messages"`
	LocalModelMessages int64              `json:"local_model_messages"`
	CloudMessages      int64              `json:"cloud_messages"`
	MessagesToday      int64              `json:"messages_today"`
	EfficiencyRatio    float64            `json:"efficiency_ratio"`
	CategoryCalls      map[Category]int64 `json:"category_calls"`
	LifetimeTokens     int64              `json:"lifetime_tokens"`
	LifetimeBilledUSD  float64            `json:"lifetime_billed_usd"`
	LastCallAt         time.Time          `json:"last_call_at,omitempty"`
}

// PeriodSnapshot captures a finished monthly period before its counters reset.
type PeriodSnapshot struct {
	PeriodStart   time.Time          `json:"period_start"`
	PeriodEnd     time.Time          `json:"period_end"`
	Plan          PlanTier           `json:"plan"`
	TokensUsed    int64              `json:"tokens_used"`
	LocalTokens   int64              `json:"local_tokens"`
	BilledUSD     float64            `json:"billed_usd"`
	Messages      int64              `json:"messages"`
	CloudMessages int64              `json:"cloud_messages"`
	CategoryCalls map[Category]int64 `json:"category_calls,omitempty"`
}
