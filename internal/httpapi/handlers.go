package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pthurston/nodeflow/core/engine"
	"github.com/pthurston/nodeflow/providers/observability"
)

// maxRequestBody caps run payloads. Canvas graphs are small; anything
// near this size is hostile or broken.
const maxRequestBody = 4 * 1024 * 1024

// userIDHeader carries the authenticated caller identity set by the
// fronting proxy. Absent means anonymous.
const userIDHeader = "X-User-Id"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	configured := s.health != nil && s.health.Configured()
	status := "ok"
	if !configured {
		status = "unconfigured"
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: status, Configured: configured})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req runRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return
	}

	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	nodes, edges := req.toGraph()
	result, err := s.runner.Run(ctx, engine.Request{
		WorkflowID:  req.WorkflowID,
		DisplayName: req.Name,
		UserID:      r.Header.Get(userIDHeader),
		Nodes:       nodes,
		Edges:       edges,
	})
	if err != nil {
		s.obs.Warn(ctx, "run failed",
			observability.String("kind", string(engine.KindOf(err))),
			observability.Error(err))
		status, code := statusForError(err)
		writeError(w, status, code, publicMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, runResponse{
		Success:        true,
		WorkflowID:     result.WorkflowID,
		ExecutionID:    result.ExecutionID,
		Result:         result.Summary,
		PerNodeResults: result.NodeResults,
		Metadata: runMetadata{
			Archetype:      result.Archetype,
			ReportShape:    result.ReportShape,
			Model:          result.Model,
			Degraded:       result.Degraded,
			Unmatched:      result.Unmatched,
			NodeCount:      result.NodeCount,
			EdgeCount:      result.EdgeCount,
			WaveCount:      result.WaveCount,
			QuotaRemaining: result.QuotaRemaining,
		},
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "not_found", "run history is not enabled")
		return
	}

	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "run history requires an authenticated user")
		return
	}

	runs, err := s.history.RecentRuns(r.Context(), userID, 20)
	if err != nil {
		s.obs.ErrorLog(r.Context(), "history lookup failed", observability.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "could not load run history")
		return
	}

	resp := historyResponse{Runs: make([]historyRun, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, historyRun{
			ExecutionID: run.ExecutionID,
			WorkflowID:  run.WorkflowID,
			Archetype:   run.Archetype,
			Status:      run.Status,
			Model:       run.Model,
			NodeCount:   run.NodeCount,
			StartedAt:   run.StartedAt.UTC().Format(time.RFC3339),
			FinishedAt:  run.FinishedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusForError maps the engine failure taxonomy onto HTTP statuses.
func statusForError(err error) (int, string) {
	kind := engine.KindOf(err)
	switch kind {
	case engine.KindInvalidGraph:
		return http.StatusBadRequest, string(kind)
	case engine.KindQuotaExceeded:
		return http.StatusForbidden, string(kind)
	case engine.KindUpstreamThrottled:
		return http.StatusTooManyRequests, string(kind)
	case engine.KindAuthConfig:
		return http.StatusServiceUnavailable, string(kind)
	default:
		return http.StatusBadGateway, string(kind)
	}
}

// publicMessage returns the caller-safe description of a run failure.
// Underlying causes stay in the logs.
func publicMessage(err error) string {
	switch engine.KindOf(err) {
	case engine.KindInvalidGraph:
		return "the workflow graph is invalid"
	case engine.KindQuotaExceeded:
		return "monthly run quota exhausted"
	case engine.KindUpstreamThrottled:
		return "the AI backend is rate limiting requests, try again shortly"
	case engine.KindAuthConfig:
		return "the AI backend is not configured"
	default:
		return "the run failed upstream"
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Success: false, Code: code, Error: message})
}
