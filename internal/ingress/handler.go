package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jmaietta/promptgenius-backend/internal/monitoring"
	"github.com/jmaietta/promptgenius-backend/internal/optimize"
	"github.com/jmaietta/promptgenius-backend/internal/utils"
)

// optimizeRequest is the inbound payload for POST /api/optimize.
type optimizeRequest struct {
	Prompt string `json:"prompt"`
}

// optimizeResponse is the success payload.
type optimizeResponse struct {
	Success         bool                `json:"success"`
	Versions        optimize.VersionSet `json:"versions"`
	OriginalLength  int                 `json:"originalLength"`
	OptimizedLength int                 `json:"optimizedLength"`
}

// errorResponse is the failure payload for every error status.
type errorResponse struct {
	Error string `json:"error"`
}

// handleOptimize drives one optimization request end to end.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	start := time.Now()

	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Valid prompt is required")
		return
	}

	outcome, optErr := s.optimizer.Optimize(r.Context(), req.Prompt)

	if optErr != nil {
		status := s.failureStatus(r.Context(), optErr.Category)
		s.recordOutcome(r, start, req.Prompt, status, nil, optErr)
		writeError(w, status, optErr.Message)
		return
	}

	resp := optimizeResponse{
		Success:         true,
		Versions:        outcome.Versions,
		OriginalLength:  len(req.Prompt),
		OptimizedLength: len(outcome.Versions.Structured),
	}
	s.recordOutcome(r, start, req.Prompt, http.StatusOK, outcome, nil)

	log.Info().
		Str("request_id", requestID(r.Context())).
		Int("original_length", resp.OriginalLength).
		Int("optimized_length", resp.OptimizedLength).
		Bool("degraded", outcome.Degraded).
		Dur("duration", time.Since(start)).
		Msg("prompt optimized")

	writeJSON(w, http.StatusOK, resp)
}

// failureStatus maps an ErrorCategory to the externally visible status.
// A timeout is 408 when the ingress-level deadline expired and 504 when the
// upstream call ran out of time on its own.
func (s *Server) failureStatus(ctx context.Context, category optimize.ErrorCategory) int {
	switch category {
	case optimize.CategoryValidation:
		return http.StatusBadRequest
	case optimize.CategoryRateLimited:
		return http.StatusTooManyRequests
	case optimize.CategoryConfig:
		return http.StatusInternalServerError
	case optimize.CategoryUnavailable:
		return http.StatusServiceUnavailable
	case optimize.CategoryTimeout:
		if ctx.Err() != nil {
			return http.StatusRequestTimeout
		}
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// recordOutcome updates metrics and telemetry for one finished request.
// Validation failures skip upstream accounting; degraded successes are
// flagged distinctly rather than conflated with clean answers.
func (s *Server) recordOutcome(r *http.Request, start time.Time, prompt string,
	status int, outcome *optimize.Outcome, optErr *optimize.Error) {

	success := optErr == nil
	degraded := outcome != nil && outcome.Degraded
	s.metrics.RecordRequest(success, degraded)

	event := &monitoring.RequestEvent{
		RequestID:    requestID(r.Context()),
		Timestamp:    start,
		Method:       r.Method,
		Path:         r.URL.Path,
		ClientIP:     clientIdentity(r),
		Provider:     s.provider,
		Model:        s.model,
		PromptLength: len(prompt),
		StatusCode:   status,
		Success:      success,
		Degraded:     degraded,
		TotalMs:      time.Since(start).Milliseconds(),
	}

	if outcome != nil {
		event.UpstreamMs = outcome.Elapsed.Milliseconds()
		event.PromptTokens = outcome.Usage.InputTokens
		event.ResponseTokens = outcome.Usage.OutputTokens
		if event.PromptTokens == 0 {
			event.PromptTokens = monitoring.EstimateTokens(prompt)
		}
		s.metrics.RecordTokenUsage(event.PromptTokens, event.ResponseTokens)
	}

	if optErr != nil {
		event.ErrorCategory = string(optErr.Category)
		switch optErr.Category {
		case optimize.CategoryUnavailable:
			s.metrics.RecordUpstreamUnavailable()
		case optimize.CategoryTimeout:
			s.metrics.RecordUpstreamTimeout()
		}
	}

	if s.tracker != nil {
		s.tracker.RecordRequest(event)
	}
}

// handleHealth returns the liveness payload; always 200 while the process
// is up.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.StartedAt()).Seconds(),
	})
}

// handleStats returns aggregated metrics as JSON.
// Restricted to localhost to prevent external access to operational metrics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.FullStats())
}

// handleNotFound returns the JSON 404 payload for unknown routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Endpoint not found")
}

// writeJSON writes a JSON response without HTML escaping, so rewritten
// prompt text comes back unmangled.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := utils.MarshalNoEscape(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
