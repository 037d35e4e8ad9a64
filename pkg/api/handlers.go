package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dailywell/aigov/pkg/models"
)

const maxBodyBytes = 1 << 16

type admissionRequest struct {
	Intent     models.Intent `json:"intent"`
	Complexity string        `json:"complexity"`
}

type admissionResponse struct {
	models.AdmissionResult
	Message  string `json:"message,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
}

type spendCheckRequest struct {
	RawCostUSD float64 `json:"raw_cost_usd"`
}

type callRequest struct {
	Intent        models.Intent        `json:"intent"`
	Tier          models.ExecutionTier `json:"tier"`
	InputTokens   int64                `json:"input_tokens"`
	OutputTokens  int64                `json:"output_tokens"`
	DurationMS    int64                `json:"duration_ms"`
	ReservationID string               `json:"reservation_id,omitempty"`
}

type externalUsageRequest struct {
	Intent       models.Intent        `json:"intent,omitempty"`
	Tier         models.ExecutionTier `json:"tier"`
	InputTokens  int64                `json:"input_tokens"`
	OutputTokens int64                `json:"output_tokens"`
}

type planRequest struct {
	Plan models.PlanTier `json:"plan"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.engine.GetUsage(r.Context(), chi.URLParam(r, "subject"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (s *Server) handleAdmission(w http.ResponseWriter, r *http.Request) {
	var req admissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.engine.CheckAvailability(r.Context(), chi.URLParam(r, "subject"), req.Intent, models.ParseComplexity(req.Complexity))
	resp := admissionResponse{AdmissionResult: res, Message: res.BlockReason.Message()}
	if err != nil {
		if res.BlockReason != models.ReasonLedgerUnavailable {
			s.writeEngineError(w, r, err)
			return
		}
		// The degraded decision is still usable by the caller.
		resp.Degraded = true
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSpendCheck(w http.ResponseWriter, r *http.Request) {
	var req spendCheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RawCostUSD < 0 {
		writeJSONError(w, http.StatusBadRequest, "raw_cost_usd must not be negative")
		return
	}
	ok, err := s.engine.CanSpendAdditional(r.Context(), chi.URLParam(r, "subject"), req.RawCostUSD)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"allowed": ok})
}

func (s *Server) handleRecordCall(w http.ResponseWriter, r *http.Request) {
	var req callRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := s.engine.RecordCompletedCall(r.Context(), chi.URLParam(r, "subject"), models.CompletedCall{
		Intent:        req.Intent,
		Tier:          req.Tier,
		InputTokens:   req.InputTokens,
		OutputTokens:  req.OutputTokens,
		Duration:      time.Duration(req.DurationMS) * time.Millisecond,
		ReservationID: req.ReservationID,
	})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleExternalUsage(w http.ResponseWriter, r *http.Request) {
	var req externalUsageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := s.engine.RecordExternalUsage(r.Context(), chi.URLParam(r, "subject"), req.InputTokens, req.OutputTokens, req.Tier, req.Intent)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleReleaseReservation(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ReleaseReservation(r.Context(), chi.URLParam(r, "subject"), chi.URLParam(r, "id")); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.engine.UpdatePlan(r.Context(), chi.URLParam(r, "subject"), req.Plan); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMonthlyReport accepts ?month=YYYY-MM and defaults to the current month.
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	var start time.Time
	if m := r.URL.Query().Get("month"); m != "" {
		t, err := time.Parse("2006-01", m)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid month %q, want YYYY-MM", m))
			return
		}
		start = t
	}
	rep, err := s.engine.MonthlyReport(r.Context(), chi.URLParam(r, "subject"), start)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if rep == nil {
		writeJSONError(w, http.StatusNotFound, "no usage in period")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleInteractions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, 50)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := s.engine.RecentInteractions(r.Context(), chi.URLParam(r, "subject"), limit)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if recs == nil {
		recs = []models.InteractionRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleRoutingStats(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, 0)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	stats, err := s.engine.RoutingIntentStats(r.Context(), chi.URLParam(r, "subject"), limit)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if stats == nil {
		stats = []models.IntentStat{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.engine.RoutingRecommendations(r.Context(), chi.URLParam(r, "subject"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	changed, err := s.engine.ForceReset(r.Context(), chi.URLParam(r, "subject"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}
