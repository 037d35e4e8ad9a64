// Package metrics exposes governance counters to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dailywell/aigov/pkg/ledger"
	"github.com/dailywell/aigov/pkg/models"
)

// Metrics holds the collectors. A nil *Metrics ignores every call.
type Metrics struct {
	Admissions      *prometheus.CounterVec
	BilledUSD       *prometheus.CounterVec
	Tokens          *prometheus.CounterVec
	Interactions    *prometheus.CounterVec
	RejectedUsage   prometheus.Counter
	LedgerResets    *prometheus.CounterVec
	LedgerConflicts prometheus.Counter
	StoreErrors     *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Admissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aigov_admissions_total",
			Help: "Admission decisions by plan, outcome reason and recommended tier",
		}, []string{"plan", "reason", "tier"}),
		BilledUSD: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aigov_billed_usd_total",
			Help: "Billed cost in USD by execution tier",
		}, []string{"tier"}),
		Tokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aigov_tokens_total",
			Help: "Tokens recorded by execution tier and direction",
		}, []string{"tier", "direction"}),
		Interactions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aigov_interactions_total",
			Help: "Recorded interactions by intent, tier and source",
		}, []string{"intent", "tier", "source"}),
		RejectedUsage: f.NewCounter(prometheus.CounterOpts{
			Name: "aigov_rejected_usage_total",
			Help: "Usage reports rejected as invalid",
		}),
		LedgerResets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aigov_ledger_resets_total",
			Help: "Lazy period resets applied by window",
		}, []string{"window"}),
		LedgerConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "aigov_ledger_conflicts_total",
			Help: "Optimistic ledger writes retried after a version conflict",
		}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aigov_store_errors_total",
			Help: "Persistence failures by operation",
		}, []string{"op"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aigov_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aigov_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveAdmission counts one admission decision.
func (m *Metrics) ObserveAdmission(res models.AdmissionResult) {
	if m == nil {
		return
	}
	reason := string(res.BlockReason)
	if reason == "" {
		reason = "OK"
	}
	m.Admissions.WithLabelValues(string(res.Plan), reason, string(res.RecommendedTier)).Inc()
}

// ObserveInteraction counts a recorded interaction.
func (m *Metrics) ObserveInteraction(rec models.InteractionRecord) {
	if m == nil {
		return
	}
	tier := string(rec.Tier)
	m.Interactions.WithLabelValues(string(rec.Intent), tier, string(rec.Source)).Inc()
	m.Tokens.WithLabelValues(tier, "input").Add(float64(rec.InputTokens))
	m.Tokens.WithLabelValues(tier, "output").Add(float64(rec.OutputTokens))
	m.BilledUSD.WithLabelValues(tier).Add(rec.BilledUSD)
}

// ObserveResets counts the windows that rolled over.
func (m *Metrics) ObserveResets(r ledger.Resets) {
	if m == nil {
		return
	}
	if r.Daily {
		m.LedgerResets.WithLabelValues("daily").Inc()
	}
	if r.Weekly {
		m.LedgerResets.WithLabelValues("weekly").Inc()
	}
	if r.Monthly {
		m.LedgerResets.WithLabelValues("monthly").Inc()
	}
}

// ObserveRejected counts an invalid usage report.
func (m *Metrics) ObserveRejected() {
	if m == nil {
		return
	}
	m.RejectedUsage.Inc()
}

// ObserveConflict counts a version conflict retry.
func (m *Metrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.LedgerConflicts.Inc()
}

// ObserveStoreError counts a persistence failure.
func (m *Metrics) ObserveStoreError(op string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(op).Inc()
}

// ObserveHTTP records one served request. route is the matched pattern, not
// the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
