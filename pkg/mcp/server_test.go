package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dailywell/aigov/pkg/models"
)

// fakeGovernor implements Governor for testing.
type fakeGovernor struct {
	usage     models.UsageSnapshot
	admission models.AdmissionResult
	report    *models.MonthlyUsageReport
	stats     []models.IntentStat
	recs      []models.Recommendation
	recent    []models.InteractionRecord
	err       error

	gotMonth time.Time
	gotLimit int
}

func (f *fakeGovernor) GetUsage(_ context.Context, _ string) (models.UsageSnapshot, error) {
	return f.usage, f.err
}
func (f *fakeGovernor) PreviewAvailability(_ context.Context, _ string, intent models.Intent, _ models.Complexity) (models.AdmissionResult, error) {
	res := f.admission
	res.Intent = intent
	return res, f.err
}
func (f *fakeGovernor) MonthlyReport(_ context.Context, _ string, start time.Time) (*models.MonthlyUsageReport, error) {
	f.gotMonth = start
	return f.report, f.err
}
func (f *fakeGovernor) RoutingIntentStats(_ context.Context, _ string, _ int) ([]models.IntentStat, error) {
	return f.stats, f.err
}
func (f *fakeGovernor) RoutingRecommendations(_ context.Context, _ string) ([]models.Recommendation, error) {
	return f.recs, f.err
}
func (f *fakeGovernor) RecentInteractions(_ context.Context, _ string, limit int) ([]models.InteractionRecord, error) {
	f.gotLimit = limit
	return f.recent, f.err
}

func sendAndReceive(t *testing.T, srv *Server, req Request) Response {
	t.Helper()
	line, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	line = append(line, '\n')

	var out bytes.Buffer
	if err := srv.Run(context.Background(), bytes.NewReader(line), &out); err != nil {
		t.Fatal(err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, out.String())
	}
	return resp
}

func callTool(t *testing.T, srv *Server, name, args string) ToolCallResult {
	t.Helper()
	params, _ := json.Marshal(ToolCallParams{Name: name, Arguments: json.RawMessage(args)})
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`3`),
		Method:  "tools/call",
		Params:  params,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolCallResult
	json.Unmarshal(data, &result)
	if len(result.Content) == 0 {
		t.Fatal("expected content")
	}
	return result
}

func TestInitialize(t *testing.T) {
	srv := New(&fakeGovernor{}, nil, "test")
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "initialize",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result InitializeResult
	json.Unmarshal(data, &result)

	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocol version = %s, want 2024-11-05", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "aigov" {
		t.Errorf("server name = %s, want aigov", result.ServerInfo.Name)
	}
	if !strings.Contains(string(data), `"capabilities":{"tools":{}}`) {
		t.Errorf("expected a tools capability, got %s", data)
	}
}

func TestToolsList(t *testing.T) {
	srv := New(&fakeGovernor{}, nil, "test")
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`2`),
		Method:  "tools/list",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolsListResult
	json.Unmarshal(data, &result)

	if len(result.Tools) != len(toolHandlers) {
		t.Errorf("got %d tools, want %d", len(result.Tools), len(toolHandlers))
	}
	for _, tool := range result.Tools {
		if _, ok := toolHandlers[tool.Name]; !ok {
			t.Errorf("tool %s has no handler", tool.Name)
		}
	}
}

func TestToolCallUsage(t *testing.T) {
	gov := &fakeGovernor{usage: models.UsageSnapshot{
		SubjectID: "u1", Plan: models.PlanMonthly,
		TokensUsed: 4200, TokenLimit: 1_500_000, BilledUSD: 2.5, HardCapUSD: 3,
		CloudMessages: 12, LocalRuleMessages: 4, EfficiencyRatio: 0.25,
		Status: models.ReasonSoftCap,
	}}
	srv := New(gov, nil, "test")

	text := callTool(t, srv, "aigov_usage", `{"subject":"u1"}`).Content[0].Text
	for _, want := range []string{"monthly", "4200", "$2.5000", "25.0%", "SOFT_CAP_REACHED"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got: %s", want, text)
		}
	}
}

func TestToolCallMissingSubject(t *testing.T) {
	srv := New(&fakeGovernor{}, nil, "test")
	for _, name := range []string{"aigov_usage", "aigov_check", "aigov_monthly_report", "aigov_routing", "aigov_recent"} {
		if res := callTool(t, srv, name, `{}`); !res.IsError {
			t.Errorf("%s: expected isError=true for missing subject", name)
		}
	}
}

func TestToolCallCheck(t *testing.T) {
	gov := &fakeGovernor{admission: models.AdmissionResult{
		Allowed: true, RecommendedTier: models.TierLocalSmallModel, BlockReason: models.ReasonHardCap,
	}}
	srv := New(gov, nil, "test")

	text := callTool(t, srv, "aigov_check", `{"subject":"u1","intent":"coaching"}`).Content[0].Text
	if !strings.Contains(text, "local_small_model") || !strings.Contains(text, "HARD_CAP_REACHED") {
		t.Errorf("unexpected check output: %s", text)
	}

	if res := callTool(t, srv, "aigov_check", `{"subject":"u1","intent":"poetry"}`); !res.IsError {
		t.Error("expected isError=true for unknown intent")
	}
}

func TestToolCallMonthlyReport(t *testing.T) {
	gov := &fakeGovernor{report: &models.MonthlyUsageReport{
		SubjectID: "u1", PeriodStart: time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
		Interactions: 3, BilledUSD: 0.03,
		ByTier:         []models.TierUsage{{Tier: models.TierCloudA, Calls: 3, Tokens: 9000, BilledUSD: 0.03}},
		ByDay:          []models.DailyUsage{{Date: "2026-08-12", Calls: 3, Tokens: 9000, BilledUSD: 0.03}},
		PeakDay:        models.DailyUsage{Date: "2026-08-12", Calls: 3, Tokens: 9000, BilledUSD: 0.03},
		MostUsedIntent: models.IntentUsage{Intent: models.IntentCoaching, Calls: 3},
	}}
	srv := New(gov, nil, "test")

	text := callTool(t, srv, "aigov_monthly_report", `{"subject":"u1","month":"2026-08"}`).Content[0].Text
	if !strings.Contains(text, "August 2026") || !strings.Contains(text, "2026-08-12") {
		t.Errorf("unexpected report output: %s", text)
	}
	if !strings.Contains(text, "Peak day:     2026-08-12") || !strings.Contains(text, "Top intent:   coaching (3 calls)") {
		t.Errorf("missing peak day or top intent: %s", text)
	}
	if gov.gotMonth.Month() != time.August {
		t.Errorf("month not passed through: %v", gov.gotMonth)
	}

	if res := callTool(t, srv, "aigov_monthly_report", `{"subject":"u1","month":"08/2026"}`); !res.IsError {
		t.Error("expected isError=true for bad month")
	}

	gov.report = nil
	text = callTool(t, srv, "aigov_monthly_report", `{"subject":"u1"}`).Content[0].Text
	if !strings.Contains(text, "No usage") {
		t.Errorf("expected empty report message, got: %s", text)
	}
}

func TestToolCallRouting(t *testing.T) {
	gov := &fakeGovernor{
		stats: []models.IntentStat{{Intent: models.IntentExplanation, Calls: 6, CloudCalls: 6, TopTier: models.TierCloudA}},
		recs:  []models.Recommendation{{Intent: models.IntentExplanation, Tier: models.TierLocalRule, Message: "serve explanation with local rules"}},
	}
	srv := New(gov, nil, "test")

	text := callTool(t, srv, "aigov_routing", `{"subject":"u1"}`).Content[0].Text
	if !strings.Contains(text, "explanation") || !strings.Contains(text, "local rules") {
		t.Errorf("unexpected routing output: %s", text)
	}
}

func TestToolCallRecentDefaultsLimit(t *testing.T) {
	gov := &fakeGovernor{recent: []models.InteractionRecord{
		{Timestamp: time.Date(2026, time.August, 12, 9, 0, 0, 0, time.UTC), Intent: models.IntentCoaching,
			Tier: models.TierCloudA, InputTokens: 3500, OutputTokens: 700, BilledUSD: 0.0105, Source: models.SourceCall},
	}}
	srv := New(gov, nil, "test")

	text := callTool(t, srv, "aigov_recent", `{"subject":"u1"}`).Content[0].Text
	if !strings.Contains(text, "3500") || !strings.Contains(text, "$0.0105") {
		t.Errorf("unexpected recent output: %s", text)
	}
	if gov.gotLimit != 20 {
		t.Errorf("expected default limit 20, got %d", gov.gotLimit)
	}
}

func TestToolCallGovernorError(t *testing.T) {
	srv := New(&fakeGovernor{err: errors.New("store down")}, nil, "test")
	res := callTool(t, srv, "aigov_usage", `{"subject":"u1"}`)
	if !res.IsError || !strings.Contains(res.Content[0].Text, "store down") {
		t.Errorf("expected error result, got %+v", res)
	}
}

func TestUnknownTool(t *testing.T) {
	srv := New(&fakeGovernor{}, nil, "test")
	if res := callTool(t, srv, "aigov_stats", `{}`); !res.IsError {
		t.Error("expected isError=true for unknown tool")
	}
}

func TestNotificationNoResponse(t *testing.T) {
	srv := New(&fakeGovernor{}, nil, "test")

	line, _ := json.Marshal(Request{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
	})
	line = append(line, '\n')

	var out bytes.Buffer
	_ = srv.Run(context.Background(), bytes.NewReader(line), &out)

	if out.Len() != 0 {
		t.Errorf("expected no output for notification, got: %s", out.String())
	}
}

func TestUnknownMethod(t *testing.T) {
	srv := New(&fakeGovernor{}, nil, "test")
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`9`),
		Method:  "unknown/method",
	})

	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != CodeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeMethodNotFound)
	}
}
