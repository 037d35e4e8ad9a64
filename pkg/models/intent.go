package models

// Intent is the purpose of an interaction.
type Intent string

const (
	IntentCoaching       Intent = "coaching"
	IntentInsight        Intent = "insight"
	IntentExplanation    Intent = "explanation"
	IntentPlanGeneration Intent = "plan_generation"
	IntentIdeaGeneration Intent = "idea_generation"
	IntentReport         Intent = "report"
	IntentScan           Intent = "scan"
	IntentExternal       Intent = "external"
)

// AllIntents lists every known intent.
var AllIntents = []Intent{
	IntentCoaching, IntentInsight, IntentExplanation, IntentPlanGeneration,
	IntentIdeaGeneration, IntentReport, IntentScan, IntentExternal,
}

// Valid reports whether i is a known intent.
func (i Intent) Valid() bool {
	return i.Category() != ""
}

// Category groups intents into the per-period call counters kept on a ledger.
type Category string

const (
	CategoryChat     Category = "chat"
	CategoryScan     Category = "scan"
	CategoryReport   Category = "report"
	CategoryExternal Category = "external"
)

// Category returns the counter bucket for the intent, or "" when unknown.
func (i Intent) Category() Category {
	switch i {
	case IntentCoaching, IntentInsight, IntentExplanation, IntentPlanGeneration, IntentIdeaGeneration:
		return CategoryChat
	case IntentScan:
		return CategoryScan
	case IntentReport:
		return CategoryReport
	case IntentExternal:
		return CategoryExternal
	default:
		return ""
	}
}

// Complexity is the caller's estimate of how demanding a request is.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// ParseComplexity maps free-form input to a Complexity, defaulting to moderate.
func ParseComplexity(s string) Complexity {
	switch Complexity(s) {
	case ComplexitySimple, ComplexityComplex:
		return Complexity(s)
	default:
		return ComplexityModerate
	}
}

// QuotaWindow is the period a per-intent quota counts over.
type QuotaWindow string

const (
	WindowNone   QuotaWindow = ""
	WindowDaily  QuotaWindow = "daily"
	WindowWeekly QuotaWindow = "weekly"
)

// IntentQuotas caps premium intents per day, and reports per week.
type IntentQuotas struct {
	InsightsPerDay     int `json:"insights_per_day" yaml:"insights_per_day"`
	CoachingPerDay     int `json:"coaching_per_day" yaml:"coaching_per_day"`
	ExplanationsPerDay int `json:"explanations_per_day" yaml:"explanations_per_day"`
	PlansPerDay        int `json:"plans_per_day" yaml:"plans_per_day"`
	IdeasPerDay        int `json:"ideas_per_day" yaml:"ideas_per_day"`
	ReportsPerWeek     int `json:"reports_per_week" yaml:"reports_per_week"`
}

// Limit returns the cap for an intent and the window it applies to.
// Intents without a quota return WindowNone.
func (q IntentQuotas) Limit(i Intent) (int, QuotaWindow) {
	switch i {
	case IntentInsight:
		return q.InsightsPerDay, WindowDaily
	case IntentCoaching:
		return q.CoachingPerDay, WindowDaily
	case IntentExplanation:
		return q.ExplanationsPerDay, WindowDaily
	case IntentPlanGeneration:
		return q.PlansPerDay, WindowDaily
	case IntentIdeaGeneration:
		return q.IdeasPerDay, WindowDaily
	case IntentReport:
		return q.ReportsPerWeek, WindowWeekly
	default:
		return 0, WindowNone
	}
}
