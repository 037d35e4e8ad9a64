package report

import (
	"fmt"

	"github.com/dailywell/aigov/pkg/models"
)

const (
	shortAnswerTokens = 200
	minSample         = 5
)

// Recommendations suggests routing changes from intent stats and current
// usage. The output is advisory; nothing acts on it automatically.
func (g *Generator) Recommendations(stats []models.IntentStat, usage models.UsageSnapshot) []models.Recommendation {
	var recs []models.Recommendation

	for _, s := range stats {
		if s.Calls < minSample || s.CloudCalls == 0 {
			continue
		}
		caps := g.router.Capability(s.Intent)
		switch {
		case caps.PatternAnswerable && s.AvgOutputTokens < shortAnswerTokens:
			recs = append(recs, models.Recommendation{
				Intent: s.Intent, Tier: models.TierLocalRule,
				Message: fmt.Sprintf("%s answers average %.0f output tokens; serve them with local rules", s.Intent, s.AvgOutputTokens),
			})
		case s.TopTier == models.TierCloudC && s.AvgOutputTokens < shortAnswerTokens:
			recs = append(recs, models.Recommendation{
				Intent: s.Intent, Tier: models.TierCloudB,
				Message: fmt.Sprintf("%s mostly runs on %s for short answers; %s should be enough", s.Intent, models.TierCloudC, models.TierCloudB),
			})
		case !caps.Vision && !caps.ComplexAnalysis && s.TopTier == models.TierCloudB:
			recs = append(recs, models.Recommendation{
				Intent: s.Intent, Tier: models.TierCloudA,
				Message: fmt.Sprintf("%s does not need vision or deep analysis; prefer %s", s.Intent, models.TierCloudA),
			})
		}
	}

	if usage.AtSoftCap {
		if top, ok := costliest(stats); ok {
			recs = append(recs, models.Recommendation{
				Intent: top.Intent, Tier: models.TierLocalSmallModel,
				Message: fmt.Sprintf("budget past soft cap; %s is the largest cost ($%.4f), move it on-device for the rest of the period", top.Intent, top.BilledUSD),
			})
		}
	}

	total := usage.LocalRuleMessages + usage.LocalModelMessages + usage.CloudMessages
	if total >= 20 && usage.EfficiencyRatio < 0.3 {
		recs = append(recs, models.Recommendation{
			Message: fmt.Sprintf("only %.0f%% of messages are served locally this period", usage.EfficiencyRatio*100),
		})
	}

	if len(recs) == 0 {
		recs = append(recs, models.Recommendation{Message: "routing looks efficient; no changes suggested"})
	}
	return recs
}

func costliest(stats []models.IntentStat) (models.IntentStat, bool) {
	var top models.IntentStat
	found := false
	for _, s := range stats {
		if s.BilledUSD > 0 && (!found || s.BilledUSD > top.BilledUSD) {
			top, found = s, true
		}
	}
	return top, found
}
