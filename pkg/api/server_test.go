package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dailywell/aigov/pkg/governor"
	"github.com/dailywell/aigov/pkg/ledger"
	"github.com/dailywell/aigov/pkg/metrics"
	"github.com/dailywell/aigov/pkg/models"
	"github.com/dailywell/aigov/pkg/policy"
	"github.com/dailywell/aigov/pkg/store"
)

func setupServer(t *testing.T, st store.Store) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e := governor.New(st, policy.NewHolder(policy.Default(), "", nil), governor.Options{
		DefaultPlan: models.PlanMonthly,
		Metrics:     m,
	})
	return New(":0", e, WithMetrics(m, reg, "/metrics"))
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := setupServer(t, store.NewMemory(0))
	w := do(t, s, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHealthFailing(t *testing.T) {
	e := governor.New(store.NewMemory(0), policy.NewHolder(policy.Default(), "", nil), governor.Options{})
	s := New(":0", e, WithHealthCheck(func(context.Context) error { return errors.New("down") }))
	w := do(t, s, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestAdmissionAndRecord(t *testing.T) {
	s := setupServer(t, store.NewMemory(0))

	w := do(t, s, http.MethodPost, "/v1/subjects/u1/admission", `{"intent":"coaching","complexity":"moderate"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var adm admissionResponse
	if err := json.NewDecoder(w.Body).Decode(&adm); err != nil {
		t.Fatal(err)
	}
	if !adm.AllowedCloud || adm.RecommendedTier != models.TierCloudA {
		t.Errorf("unexpected admission %+v", adm)
	}

	w = do(t, s, http.MethodPost, "/v1/subjects/u1/calls",
		`{"intent":"coaching","tier":"cloud_tier_a","input_tokens":3500,"output_tokens":700,"duration_ms":1200}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var rec models.InteractionRecord
	if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID == "" || rec.BilledUSD <= 0 {
		t.Errorf("unexpected record %+v", rec)
	}

	w = do(t, s, http.MethodGet, "/v1/subjects/u1/usage", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var usage models.UsageSnapshot
	if err := json.NewDecoder(w.Body).Decode(&usage); err != nil {
		t.Fatal(err)
	}
	if usage.TokensUsed != 4200 || usage.CloudMessages != 1 {
		t.Errorf("unexpected usage %+v", usage)
	}

	w = do(t, s, http.MethodGet, "/v1/subjects/u1/interactions?limit=5", "")
	var recs []models.InteractionRecord
	if err := json.NewDecoder(w.Body).Decode(&recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Errorf("expected 1 interaction, got %d", len(recs))
	}
}

func TestBlockedAdmissionIsOK(t *testing.T) {
	s := setupServer(t, store.NewMemory(0))
	if w := do(t, s, http.MethodPut, "/v1/subjects/u1/plan", `{"plan":"free"}`); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	w := do(t, s, http.MethodPost, "/v1/subjects/u1/admission", `{"intent":"insight"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var adm admissionResponse
	if err := json.NewDecoder(w.Body).Decode(&adm); err != nil {
		t.Fatal(err)
	}
	if adm.Allowed || adm.BlockReason != models.ReasonNotPremium || adm.Message == "" {
		t.Errorf("expected NOT_PREMIUM with message, got %+v", adm)
	}
}

func TestBadRequests(t *testing.T) {
	s := setupServer(t, store.NewMemory(0))
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown intent", http.MethodPost, "/v1/subjects/u1/admission", `{"intent":"poetry"}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/v1/subjects/u1/admission", `{"intent":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/subjects/u1/spend-check", `{"usd":1}`, http.StatusBadRequest},
		{"negative tokens", http.MethodPost, "/v1/subjects/u1/calls", `{"intent":"coaching","tier":"cloud_tier_a","input_tokens":-1}`, http.StatusBadRequest},
		{"unknown plan", http.MethodPut, "/v1/subjects/u1/plan", `{"plan":"gold"}`, http.StatusBadRequest},
		{"unknown reservation", http.MethodDelete, "/v1/subjects/u1/reservations/nope", "", http.StatusNotFound},
		{"bad month", http.MethodGet, "/v1/subjects/u1/reports/monthly?month=August", "", http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/v1/subjects/u1/interactions?limit=x", "", http.StatusBadRequest},
		{"empty report", http.MethodGet, "/v1/subjects/u1/reports/monthly", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestSpendCheckAndReset(t *testing.T) {
	s := setupServer(t, store.NewMemory(0))

	w := do(t, s, http.MethodPost, "/v1/subjects/u1/spend-check", `{"raw_cost_usd":0.5}`)
	var spend map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&spend); err != nil {
		t.Fatal(err)
	}
	if !spend["allowed"] {
		t.Error("expected spend allowed on a fresh ledger")
	}

	do(t, s, http.MethodPost, "/v1/subjects/u1/external-usage", `{"tier":"cloud_tier_b","input_tokens":100,"output_tokens":10}`)

	w = do(t, s, http.MethodPost, "/v1/subjects/u1/reset", "")
	var reset map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&reset); err != nil {
		t.Fatal(err)
	}
	if !reset["changed"] {
		t.Error("expected first reset to change the ledger")
	}
	w = do(t, s, http.MethodPost, "/v1/subjects/u1/reset", "")
	reset = nil
	if err := json.NewDecoder(w.Body).Decode(&reset); err != nil {
		t.Fatal(err)
	}
	if reset["changed"] {
		t.Error("expected second reset to be a no-op")
	}
}

func TestRoutingEndpoints(t *testing.T) {
	s := setupServer(t, store.NewMemory(0))
	do(t, s, http.MethodPost, "/v1/subjects/u1/calls", `{"intent":"report","tier":"cloud_tier_b","input_tokens":4000,"output_tokens":900}`)

	w := do(t, s, http.MethodGet, "/v1/subjects/u1/routing/stats", "")
	var stats []models.IntentStat
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 || stats[0].Intent != models.IntentReport {
		t.Errorf("unexpected stats %+v", stats)
	}

	w = do(t, s, http.MethodGet, "/v1/subjects/u1/routing/recommendations", "")
	var recs []models.Recommendation
	if err := json.NewDecoder(w.Body).Decode(&recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) == 0 {
		t.Error("expected at least one recommendation")
	}

	w = do(t, s, http.MethodGet, "/v1/subjects/u1/reports/monthly", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

type brokenStore struct{ store.Store }

func (brokenStore) LoadLedger(context.Context, string) (*ledger.Ledger, error) {
	return nil, errors.New("disk I/O error")
}

func TestStoreFailure(t *testing.T) {
	s := setupServer(t, brokenStore{store.NewMemory(0)})

	w := do(t, s, http.MethodPost, "/v1/subjects/u1/admission", `{"intent":"coaching"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var adm admissionResponse
	if err := json.NewDecoder(w.Body).Decode(&adm); err != nil {
		t.Fatal(err)
	}
	if !adm.Degraded || adm.AllowedCloud || adm.BlockReason != models.ReasonLedgerUnavailable {
		t.Errorf("expected degraded local result, got %+v", adm)
	}

	if w := do(t, s, http.MethodGet, "/v1/subjects/u1/usage", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for usage, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupServer(t, store.NewMemory(0))
	do(t, s, http.MethodPost, "/v1/subjects/u1/admission", `{"intent":"coaching"}`)

	w := do(t, s, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{"aigov_admissions_total", "aigov_http_requests_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s in metrics output", name)
		}
	}
}
