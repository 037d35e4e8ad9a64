package router

import (
	"testing"

	"github.com/dailywell/aigov/pkg/models"
)

func TestResolve(t *testing.T) {
	r := New()

	tests := []struct {
		name       string
		plan       models.PlanTier
		intent     models.Intent
		complexity models.Complexity
		cloud      bool
		want       models.ExecutionTier
	}{
		{"coaching moderate", models.PlanMonthly, models.IntentCoaching, models.ComplexityModerate, true, models.TierCloudA},
		{"coaching complex", models.PlanMonthly, models.IntentCoaching, models.ComplexityComplex, true, models.TierCloudB},
		{"scan needs vision", models.PlanMonthly, models.IntentScan, models.ComplexityModerate, true, models.TierCloudB},
		{"report complex", models.PlanAnnual, models.IntentReport, models.ComplexityComplex, true, models.TierCloudC},
		{"simple explanation stays local", models.PlanMonthly, models.IntentExplanation, models.ComplexitySimple, true, models.TierLocalRule},
		{"no cloud pattern intent", models.PlanMonthly, models.IntentInsight, models.ComplexityModerate, false, models.TierLocalRule},
		{"no cloud generative intent", models.PlanMonthly, models.IntentCoaching, models.ComplexityModerate, false, models.TierLocalSmallModel},
		{"unknown intent", models.PlanMonthly, models.Intent("mystery"), models.ComplexityModerate, true, models.TierCloudA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.plan, tt.intent, tt.complexity, tt.cloud)
			if got.Tier != tt.want {
				t.Errorf("expected %s, got %s (%s)", tt.want, got.Tier, got.Reason)
			}
		})
	}
}

func TestFreePlanNeverCloud(t *testing.T) {
	r := New()
	for _, intent := range models.AllIntents {
		for _, cx := range []models.Complexity{models.ComplexitySimple, models.ComplexityModerate, models.ComplexityComplex} {
			if got := r.Resolve(models.PlanFree, intent, cx, true); got.Tier.IsCloud() {
				t.Errorf("free plan routed %s/%s to %s", intent, cx, got.Tier)
			}
		}
	}
}

func TestNoCloudNeverCloud(t *testing.T) {
	r := New()
	for _, plan := range models.AllPlans {
		for _, intent := range models.AllIntents {
			if got := r.Resolve(plan, intent, models.ComplexityComplex, false); got.Tier.IsCloud() {
				t.Errorf("%s/%s routed to %s with cloud disallowed", plan, intent, got.Tier)
			}
		}
	}
}
