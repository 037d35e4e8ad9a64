// Package report aggregates a subject's interaction log into read-only
// reports. Nothing here mutates a ledger.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dailywell/aigov/pkg/ledger"
	"github.com/dailywell/aigov/pkg/models"
	"github.com/dailywell/aigov/pkg/router"
	"github.com/dailywell/aigov/pkg/store"
)

// DefaultStatsWindow is how many recent interactions IntentStats reads.
const DefaultStatsWindow = 500

// Generator builds reports from stored interactions.
type Generator struct {
	store  store.Store
	router *router.Router
}

// New creates a Generator.
func New(st store.Store, r *router.Router) *Generator {
	return &Generator{store: st, router: r}
}

// MonthlyReport summarises the calendar month containing periodStart. It
// returns nil when the subject has no interactions in that month.
func (g *Generator) MonthlyReport(ctx context.Context, subjectID string, periodStart time.Time) (*models.MonthlyUsageReport, error) {
	start := ledger.MonthStart(periodStart)
	end := start.AddDate(0, 1, 0)

	recs, err := g.store.ListInteractionsSince(ctx, subjectID, start)
	if err != nil {
		return nil, fmt.Errorf("monthly report: %w", err)
	}

	r := &models.MonthlyUsageReport{SubjectID: subjectID, PeriodStart: start, PeriodEnd: end}
	tiers := make(map[models.ExecutionTier]*models.TierUsage)
	days := make(map[string]*models.DailyUsage)
	intents := make(map[models.Intent]int64)
	var local int64
	var totalDuration time.Duration

	for _, rec := range recs {
		if !rec.Timestamp.Before(end) {
			continue
		}
		r.Interactions++
		r.InputTokens += rec.InputTokens
		r.OutputTokens += rec.OutputTokens
		r.BilledUSD += rec.BilledUSD
		totalDuration += rec.Duration
		if rec.Tier.IsFree() {
			local++
		}
		if rec.Source == models.SourceExternal {
			r.ExternalCalls++
		}

		tu, ok := tiers[rec.Tier]
		if !ok {
			tu = &models.TierUsage{Tier: rec.Tier}
			tiers[rec.Tier] = tu
		}
		tu.Calls++
		tu.Tokens += rec.TotalTokens()
		tu.BilledUSD += rec.BilledUSD

		day := rec.Timestamp.UTC().Format("2006-01-02")
		du, ok := days[day]
		if !ok {
			du = &models.DailyUsage{Date: day}
			days[day] = du
		}
		du.Calls++
		du.Tokens += rec.TotalTokens()
		du.BilledUSD += rec.BilledUSD

		if rec.Intent != "" {
			intents[rec.Intent]++
		}
	}

	if r.Interactions == 0 {
		return nil, nil
	}
	r.LocalShare = float64(local) / float64(r.Interactions)
	r.AvgDuration = totalDuration / time.Duration(r.Interactions)

	for _, tier := range models.AllTiers {
		if tu, ok := tiers[tier]; ok {
			r.ByTier = append(r.ByTier, *tu)
		}
	}
	for _, du := range days {
		r.ByDay = append(r.ByDay, *du)
	}
	sort.Slice(r.ByDay, func(i, j int) bool { return r.ByDay[i].Date < r.ByDay[j].Date })
	r.PeakDay = peakDay(r.ByDay)
	r.MostUsedIntent = mostUsedIntent(intents)
	return r, nil
}

// peakDay expects days in date order so the earliest day wins a full tie.
func peakDay(days []models.DailyUsage) models.DailyUsage {
	var peak models.DailyUsage
	for i, d := range days {
		if i == 0 || d.Tokens > peak.Tokens || (d.Tokens == peak.Tokens && d.Calls > peak.Calls) {
			peak = d
		}
	}
	return peak
}

func mostUsedIntent(counts map[models.Intent]int64) models.IntentUsage {
	var top models.IntentUsage
	for intent, n := range counts {
		if n > top.Calls || (n == top.Calls && intent < top.Intent) {
			top = models.IntentUsage{Intent: intent, Calls: n}
		}
	}
	return top
}

// IntentStats aggregates the most recent limit interactions per intent,
// ordered by call count.
func (g *Generator) IntentStats(ctx context.Context, subjectID string, limit int) ([]models.IntentStat, error) {
	if limit <= 0 {
		limit = DefaultStatsWindow
	}
	recs, err := g.store.ListRecentInteractions(ctx, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("intent stats: %w", err)
	}

	type acc struct {
		stat     models.IntentStat
		in, out  int64
		duration time.Duration
		tiers    map[models.ExecutionTier]int64
	}
	byIntent := make(map[models.Intent]*acc)
	for _, rec := range recs {
		a, ok := byIntent[rec.Intent]
		if !ok {
			a = &acc{stat: models.IntentStat{Intent: rec.Intent}, tiers: make(map[models.ExecutionTier]int64)}
			byIntent[rec.Intent] = a
		}
		a.stat.Calls++
		if rec.Tier.IsCloud() {
			a.stat.CloudCalls++
		} else {
			a.stat.LocalCalls++
		}
		a.in += rec.InputTokens
		a.out += rec.OutputTokens
		a.duration += rec.Duration
		a.stat.BilledUSD += rec.BilledUSD
		a.tiers[rec.Tier]++
	}

	stats := make([]models.IntentStat, 0, len(byIntent))
	for _, a := range byIntent {
		n := a.stat.Calls
		a.stat.AvgInputTokens = float64(a.in) / float64(n)
		a.stat.AvgOutputTokens = float64(a.out) / float64(n)
		a.stat.AvgBilledUSD = a.stat.BilledUSD / float64(n)
		a.stat.AvgDuration = a.duration / time.Duration(n)
		var best int64
		for _, tier := range models.AllTiers {
			if c := a.tiers[tier]; c > best {
				best, a.stat.TopTier = c, tier
			}
		}
		stats = append(stats, a.stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Calls != stats[j].Calls {
			return stats[i].Calls > stats[j].Calls
		}
		return stats[i].Intent < stats[j].Intent
	})
	return stats, nil
}
