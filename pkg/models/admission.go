package models

import "time"

// BlockReason explains a denial or degradation. The empty value means none.
type BlockReason string

const (
	ReasonNone              BlockReason = ""
	ReasonCreditsDepleted   BlockReason = "CREDITS_DEPLETED"
	ReasonDailyLimit        BlockReason = "DAILY_LIMIT_REACHED"
	ReasonNotPremium        BlockReason = "NOT_PREMIUM"
	ReasonRateLimited       BlockReason = "RATE_LIMITED"
	ReasonSoftCap           BlockReason = "SOFT_CAP_REACHED"
	ReasonHardCap           BlockReason = "HARD_CAP_REACHED"
	ReasonSLMFallback       BlockReason = "SLM_FALLBACK_ACTIVE"
	ReasonLedgerUnavailable BlockReason = "LEDGER_UNAVAILABLE"
)

// Message returns a user-facing explanation for the reason.
func (r BlockReason) Message() string {
	switch r {
	case ReasonCreditsDepleted:
		return "Monthly AI credits are used up. On-device features remain available."
	case ReasonDailyLimit:
		return "Daily limit reached. It resets tomorrow."
	case ReasonNotPremium:
		return "This feature is part of a premium plan."
	case ReasonRateLimited:
		return "Too many requests. Try again shortly."
	case ReasonSoftCap:
		return "Most of this month's AI budget is used."
	case ReasonHardCap, ReasonSLMFallback:
		return "Monthly AI budget reached. Responses now come from the on-device model."
	case ReasonLedgerUnavailable:
		return "Usage data is temporarily unavailable. Using on-device features."
	default:
		return ""
	}
}

// AdmissionResult is the decision for one prospective interaction.
type AdmissionResult struct {
	Allowed          bool          `json:"allowed"`
	AllowedCloud     bool          `json:"allowed_cloud"`
	RecommendedTier  ExecutionTier `json:"recommended_tier"`
	BlockReason      BlockReason   `json:"block_reason,omitempty"`
	TokensRemaining  int64         `json:"tokens_remaining"`
	USDRemaining     float64       `json:"usd_remaining"`
	PercentRemaining float64       `json:"percent_remaining"`
	AtSoftCap        bool          `json:"at_soft_cap"`
	AtHardCap        bool          `json:"at_hard_cap"`
	RetryAfter       time.Duration `json:"retry_after,omitempty"`
	ReservationID    string        `json:"reservation_id,omitempty"`
	ReservedUSD      float64       `json:"reserved_usd,omitempty"`
	Plan             PlanTier      `json:"plan"`
	Intent           Intent        `json:"intent"`
}
