package mcp

import (
	"fmt"
	"strings"

	"github.com/dailywell/aigov/pkg/models"
	"github.com/dailywell/aigov/pkg/policy"
)

// formatUsage formats a usage snapshot as text.
func formatUsage(u models.UsageSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage for %s (%s plan, period from %s)\n",
		u.SubjectID, u.Plan, u.PeriodStart.Format("2006-01-02"))
	fmt.Fprintf(&b, "  Tokens:     %d / %s (%.1f%% used, %d today)\n",
		u.TokensUsed, formatLimit(u.TokenLimit), u.PercentUsed, u.TokensToday)
	fmt.Fprintf(&b, "  Billed:     $%.4f (reserved $%.4f)\n", u.BilledUSD, u.ReservedUSD)
	fmt.Fprintf(&b, "  Caps:       soft $%.2f, hard $%.2f, $%.4f remaining\n",
		u.SoftCapUSD, u.HardCapUSD, u.CostRemainingUSD)
	fmt.Fprintf(&b, "  Messages:   %d local rule, %d local model, %d cloud (%d today)\n",
		u.LocalRuleMessages, u.LocalModelMessages, u.CloudMessages, u.MessagesToday)
	fmt.Fprintf(&b, "  Efficiency: %.1f%% served locally\n", u.EfficiencyRatio*100)
	fmt.Fprintf(&b, "  Lifetime:   %d tokens, $%.4f\n", u.LifetimeTokens, u.LifetimeBilledUSD)
	if u.Status != models.ReasonNone {
		fmt.Fprintf(&b, "  Status:     %s (%s)\n", u.Status, u.Status.Message())
	}
	return b.String()
}

func formatLimit(n int64) string {
	if n == policy.Unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", n)
}

// formatAdmission formats an admission decision as text.
func formatAdmission(r models.AdmissionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Admission for %s (%s plan)\n", r.Intent, r.Plan)
	fmt.Fprintf(&b, "  Allowed:          %t\n", r.Allowed)
	fmt.Fprintf(&b, "  Cloud allowed:    %t\n", r.AllowedCloud)
	fmt.Fprintf(&b, "  Recommended tier: %s\n", r.RecommendedTier)
	fmt.Fprintf(&b, "  Remaining:        %d tokens, $%.4f (%.1f%%)\n",
		r.TokensRemaining, r.USDRemaining, r.PercentRemaining)
	if r.BlockReason != models.ReasonNone {
		fmt.Fprintf(&b, "  Reason:           %s (%s)\n", r.BlockReason, r.BlockReason.Message())
	}
	if r.RetryAfter > 0 {
		fmt.Fprintf(&b, "  Retry after:      %s\n", r.RetryAfter)
	}
	return b.String()
}

// formatMonthlyReport formats a monthly report as text tables.
func formatMonthlyReport(r *models.MonthlyUsageReport) string {
	if r == nil {
		return "No usage in this period."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Monthly report for %s, %s\n", r.SubjectID, r.PeriodStart.Format("January 2006"))
	fmt.Fprintf(&b, "  Interactions: %d (%d external)\n", r.Interactions, r.ExternalCalls)
	fmt.Fprintf(&b, "  Tokens:       %d in, %d out\n", r.InputTokens, r.OutputTokens)
	fmt.Fprintf(&b, "  Billed:       $%.4f\n", r.BilledUSD)
	fmt.Fprintf(&b, "  Local share:  %.1f%%\n", r.LocalShare*100)
	fmt.Fprintf(&b, "  Peak day:     %s (%d calls, %d tokens)\n", r.PeakDay.Date, r.PeakDay.Calls, r.PeakDay.Tokens)
	if r.MostUsedIntent.Intent != "" {
		fmt.Fprintf(&b, "  Top intent:   %s (%d calls)\n", r.MostUsedIntent.Intent, r.MostUsedIntent.Calls)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "%-20s %8s %12s %12s\n", "Tier", "Calls", "Tokens", "Billed")
	b.WriteString(strings.Repeat("-", 55) + "\n")
	for _, t := range r.ByTier {
		fmt.Fprintf(&b, "%-20s %8d %12d %12s\n", t.Tier, t.Calls, t.Tokens, fmt.Sprintf("$%.4f", t.BilledUSD))
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "%-12s %8s %12s %12s\n", "Date", "Calls", "Tokens", "Billed")
	b.WriteString(strings.Repeat("-", 47) + "\n")
	for _, d := range r.ByDay {
		fmt.Fprintf(&b, "%-12s %8d %12d %12s\n", d.Date, d.Calls, d.Tokens, fmt.Sprintf("$%.4f", d.BilledUSD))
	}
	return b.String()
}

// formatIntentStats formats per-intent routing stats as a text table.
func formatIntentStats(stats []models.IntentStat) string {
	if len(stats) == 0 {
		return "No interactions recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s %6s %6s %6s %10s %10s %10s %10s %-18s\n",
		"Intent", "Calls", "Cloud", "Local", "Avg In", "Avg Out", "Billed", "Avg Cost", "Top Tier")
	b.WriteString(strings.Repeat("-", 101) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-16s %6d %6d %6d %10.0f %10.0f %10s %10s %-18s\n",
			s.Intent, s.Calls, s.CloudCalls, s.LocalCalls, s.AvgInputTokens, s.AvgOutputTokens,
			fmt.Sprintf("$%.4f", s.BilledUSD), fmt.Sprintf("$%.5f", s.AvgBilledUSD), s.TopTier)
	}
	return b.String()
}

// formatRecommendations formats routing recommendations as a list.
func formatRecommendations(recs []models.Recommendation) string {
	if len(recs) == 0 {
		return "No recommendations."
	}
	var b strings.Builder
	b.WriteString("Recommendations\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "  - %s\n", r.Message)
	}
	return b.String()
}

// formatInteractions formats interaction records as a text table.
func formatInteractions(recs []models.InteractionRecord) string {
	if len(recs) == 0 {
		return "No interactions found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-16s %-18s %8s %8s %10s %-8s\n",
		"Time", "Intent", "Tier", "In", "Out", "Billed", "Source")
	b.WriteString(strings.Repeat("-", 95) + "\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "%-20s %-16s %-18s %8d %8d %10s %-8s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Intent, r.Tier, r.InputTokens, r.OutputTokens,
			fmt.Sprintf("$%.4f", r.BilledUSD), r.Source)
	}
	return b.String()
}
