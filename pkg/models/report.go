package models

import "time"

// TierUsage aggregates interactions served by one tier.
type TierUsage struct {
	Tier      ExecutionTier `json:"tier"`
	Calls     int64         `json:"calls"`
	Tokens    int64         `json:"tokens"`
	BilledUSD float64       `json:"billed_usd"`
}

// DailyUsage aggregates one UTC day of interactions.
type DailyUsage struct {
	Date      string  `json:"date"`
	Calls     int64   `json:"calls"`
	Tokens    int64   `json:"tokens"`
	BilledUSD float64 `json:"billed_usd"`
}

// IntentUsage counts interactions served for one intent.
type IntentUsage struct {
	Intent Intent `json:"intent"`
	Calls  int64  `json:"calls"`
}

// MonthlyUsageReport summarises a subject's interactions in one period.
type MonthlyUsageReport struct {
	SubjectID     string        `json:"subject_id"`
	PeriodStart   time.Time     `json:"period_start"`
	PeriodEnd     time.Time     `json:"period_end"`
	Interactions  int64         `json:"interactions"`
	InputTokens   int64         `json:"input_tokens"`
	OutputTokens  int64         `json:"output_tokens"`
	BilledUSD     float64       `json:"billed_usd"`
	LocalShare    float64       `json:"local_share"`
	AvgDuration   time.Duration `json:"avg_duration"`
	ByTier        []TierUsage   `json:"by_tier"`
	ByDay         []DailyUsage  `json:"by_day"`
	ExternalCalls int64         `json:"external_calls"`
	// PeakDay has the most tokens; ties go to more calls, then the earlier date.
	PeakDay DailyUsage `json:"peak_day"`
	// MostUsedIntent has the most calls; ties go to the lexically smaller intent.
	MostUsedIntent IntentUsage `json:"most_used_intent"`
}

// IntentStat aggregates recent interactions for one intent.
type IntentStat struct {
	Intent          Intent        `json:"intent"`
	Calls           int64         `json:"calls"`
	CloudCalls      int64         `json:"cloud_calls"`
	LocalCalls      int64         `json:"local_calls"`
	AvgInputTokens  float64       `json:"avg_input_tokens"`
	AvgOutputTokens float64       `json:"avg_output_tokens"`
	BilledUSD       float64       `json:"billed_usd"`
	AvgBilledUSD    float64       `json:"avg_billed_usd"`
	AvgDuration     time.Duration `json:"avg_duration"`
	TopTier         ExecutionTier `json:"top_tier"`
}

// Recommendation is an advisory routing suggestion.
type Recommendation struct {
	Intent  Intent        `json:"intent,omitempty"`
	Tier    ExecutionTier `json:"tier,omitempty"`
	Message string        `json:"message"`
}
