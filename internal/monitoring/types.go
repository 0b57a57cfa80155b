// Package monitoring - types.go defines telemetry event shapes.
package monitoring

import "time"

// RequestEvent records one optimization request. It carries metadata only -
// never the prompt text or the rewritten variants.
type RequestEvent struct {
	RequestID      string    `json:"request_id"`
	Timestamp      time.Time `json:"timestamp"`
	Method         string    `json:"method"`
	Path           string    `json:"path"`
	ClientIP       string    `json:"client_ip"`
	Provider       string    `json:"provider,omitempty"`
	Model          string    `json:"model,omitempty"`
	PromptLength   int       `json:"prompt_length,omitempty"`
	PromptTokens   int       `json:"prompt_tokens,omitempty"`
	ResponseTokens int       `json:"response_tokens,omitempty"`
	StatusCode     int       `json:"status_code"`
	Success        bool      `json:"success"`
	// Degraded marks a 200 where the upstream answer could not be parsed
	// into the three-key document. Kept distinct from clean successes.
	Degraded      bool   `json:"degraded,omitempty"`
	ErrorCategory string `json:"error_category,omitempty"`
	UpstreamMs    int64  `json:"upstream_ms,omitempty"`
	TotalMs       int64  `json:"total_ms"`
}

// InitEvent records service startup parameters.
type InitEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	Event        string    `json:"event"`
	ServerPort   int       `json:"server_port"`
	Env          string    `json:"env"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	HasAPIKey    bool      `json:"has_api_key"`
	RateLimitMax int       `json:"rate_limit_max"`
	TelemetryDB  bool      `json:"telemetry_db"`
}
