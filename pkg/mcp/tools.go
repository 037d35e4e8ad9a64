package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dailywell/aigov/pkg/models"
)

// Tool argument structs.

type subjectArgs struct {
	Subject string `json:"subject"`
}

type checkArgs struct {
	Subject    string `json:"subject"`
	Intent     string `json:"intent"`
	Complexity string `json:"complexity"`
}

type reportArgs struct {
	Subject string `json:"subject"`
	Month   string `json:"month"`
}

type recentArgs struct {
	Subject string `json:"subject"`
	Limit   int    `json:"limit"`
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"aigov_usage":          handleUsage,
	"aigov_check":          handleCheck,
	"aigov_monthly_report": handleMonthlyReport,
	"aigov_routing":        handleRouting,
	"aigov_recent":         handleRecent,
}

var subjectProperty = map[string]any{
	"type":        "string",
	"description": "The subject (user) ID",
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "aigov_usage",
		Description: "Show a subject's AI usage for the current period: tokens, billed cost against soft and hard caps, and local vs cloud message counts.",
		InputSchema: map[string]any{
			"type":       "object",
			"required":   []string{"subject"},
			"properties": map[string]any{"subject": subjectProperty},
		},
	},
	{
		Name:        "aigov_check",
		Description: "Preview the admission decision for an interaction without recording anything. Shows whether cloud is allowed, the recommended tier and the block reason.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"subject", "intent"},
			"properties": map[string]any{
				"subject": subjectProperty,
				"intent": map[string]any{
					"type":        "string",
					"description": "Interaction intent",
					"enum":        intentNames(),
				},
				"complexity": map[string]any{
					"type":        "string",
					"description": "simple, moderate or complex (optional, defaults to moderate)",
				},
			},
		},
	},
	{
		Name:        "aigov_monthly_report",
		Description: "Summarise a subject's interactions for one month by tier and by day.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"subject"},
			"properties": map[string]any{
				"subject": subjectProperty,
				"month": map[string]any{
					"type":        "string",
					"description": "Month in YYYY-MM format (optional, defaults to the current month)",
				},
			},
		},
	},
	{
		Name:        "aigov_routing",
		Description: "Show per-intent routing statistics and advisory routing recommendations for a subject.",
		InputSchema: map[string]any{
			"type":       "object",
			"required":   []string{"subject"},
			"properties": map[string]any{"subject": subjectProperty},
		},
	},
	{
		Name:        "aigov_recent",
		Description: "List a subject's most recent interactions, newest first.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"subject"},
			"properties": map[string]any{
				"subject": subjectProperty,
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of interactions (optional, defaults to 20)",
				},
			},
		},
	},
}

func intentNames() []string {
	names := make([]string, 0, len(models.AllIntents))
	for _, i := range models.AllIntents {
		names = append(names, string(i))
	}
	return names
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func handleUsage(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args subjectArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if args.Subject == "" {
		return errorResult("subject is required")
	}
	usage, err := s.gov.GetUsage(ctx, args.Subject)
	if err != nil {
		return errorResult("Error fetching usage: " + err.Error())
	}
	return textResult(formatUsage(usage))
}

func handleCheck(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args checkArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if args.Subject == "" {
		return errorResult("subject is required")
	}
	intent := models.Intent(args.Intent)
	if !intent.Valid() {
		return errorResult("Unknown intent: " + args.Intent)
	}
	res, err := s.gov.PreviewAvailability(ctx, args.Subject, intent, models.ParseComplexity(args.Complexity))
	if err != nil {
		return errorResult("Error checking availability: " + err.Error())
	}
	return textResult(formatAdmission(res))
}

func handleMonthlyReport(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args reportArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if args.Subject == "" {
		return errorResult("subject is required")
	}

	var start time.Time
	if args.Month != "" {
		t, err := time.Parse("2006-01", args.Month)
		if err != nil {
			return errorResult("Invalid month (use YYYY-MM): " + err.Error())
		}
		start = t
	}

	rep, err := s.gov.MonthlyReport(ctx, args.Subject, start)
	if err != nil {
		return errorResult("Error building report: " + err.Error())
	}
	return textResult(formatMonthlyReport(rep))
}

func handleRouting(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args subjectArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if args.Subject == "" {
		return errorResult("subject is required")
	}
	stats, err := s.gov.RoutingIntentStats(ctx, args.Subject, 0)
	if err != nil {
		return errorResult("Error fetching routing stats: " + err.Error())
	}
	recs, err := s.gov.RoutingRecommendations(ctx, args.Subject)
	if err != nil {
		return errorResult("Error building recommendations: " + err.Error())
	}
	return textResult(formatIntentStats(stats) + "\n" + formatRecommendations(recs))
}

func handleRecent(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	args := recentArgs{Limit: 20}
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if args.Subject == "" {
		return errorResult("subject is required")
	}
	if args.Limit <= 0 {
		args.Limit = 20
	}
	recs, err := s.gov.RecentInteractions(ctx, args.Subject, args.Limit)
	if err != nil {
		return errorResult("Error fetching interactions: " + err.Error())
	}
	return textResult(formatInteractions(recs))
}
