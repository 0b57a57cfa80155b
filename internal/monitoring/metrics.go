// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - requests/successes: Total and successful request counts
//   - degraded:           Successes where normalization fell back
//   - rate_limited:       Requests rejected by the ingress limiter
//   - upstream failures:  Per-category upstream error counts
//
// For production, export these to Prometheus or similar.
package monitoring

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	startedAt time.Time

	requests    atomic.Int64
	successes   atomic.Int64
	degraded    atomic.Int64
	rateLimited atomic.Int64

	upstreamUnavailable atomic.Int64
	upstreamTimeouts    atomic.Int64

	totalInputTokens  atomic.Int64
	totalOutputTokens atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startedAt: time.Now()}
}

// RecordRequest records a completed request.
func (mc *MetricsCollector) RecordRequest(success, degraded bool) {
	mc.requests.Add(1)
	if success {
		mc.successes.Add(1)
	}
	if degraded {
		mc.degraded.Add(1)
	}
}

// RecordRateLimited records a request rejected by the ingress limiter.
func (mc *MetricsCollector) RecordRateLimited() { mc.rateLimited.Add(1) }

// RecordUpstreamUnavailable records an upstream 5xx or transport failure.
func (mc *MetricsCollector) RecordUpstreamUnavailable() { mc.upstreamUnavailable.Add(1) }

// RecordUpstreamTimeout records an expired upstream deadline.
func (mc *MetricsCollector) RecordUpstreamTimeout() { mc.upstreamTimeouts.Add(1) }

// RecordTokenUsage records token counts reported by the provider.
func (mc *MetricsCollector) RecordTokenUsage(input, output int) {
	mc.totalInputTokens.Add(int64(input))
	mc.totalOutputTokens.Add(int64(output))
}

// StartedAt returns when the metrics collector was created.
func (mc *MetricsCollector) StartedAt() time.Time { return mc.startedAt }

// StatsResponse is the structured response for the /stats endpoint.
type StatsResponse struct {
	Uptime        string        `json:"uptime"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartedAt     string        `json:"started_at"`
	Requests      RequestStats  `json:"requests"`
	Upstream      UpstreamStats `json:"upstream"`
	Tokens        TokenStats    `json:"tokens"`
}

// RequestStats holds request count metrics.
type RequestStats struct {
	Total       int64 `json:"total"`
	Successful  int64 `json:"successful"`
	Failed      int64 `json:"failed"`
	Degraded    int64 `json:"degraded"`
	RateLimited int64 `json:"rate_limited"`
}

// UpstreamStats holds upstream failure metrics.
type UpstreamStats struct {
	Unavailable int64 `json:"unavailable"`
	Timeouts    int64 `json:"timeouts"`
}

// TokenStats holds provider-reported token usage.
type TokenStats struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// FullStats returns all metrics for the /stats endpoint.
func (mc *MetricsCollector) FullStats() StatsResponse {
	uptime := time.Since(mc.startedAt)
	requests := mc.requests.Load()
	successes := mc.successes.Load()

	return StatsResponse{
		Uptime:        formatDuration(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartedAt:     mc.startedAt.Format(time.RFC3339),
		Requests: RequestStats{
			Total:       requests,
			Successful:  successes,
			Failed:      requests - successes,
			Degraded:    mc.degraded.Load(),
			RateLimited: mc.rateLimited.Load(),
		},
		Upstream: UpstreamStats{
			Unavailable: mc.upstreamUnavailable.Load(),
			Timeouts:    mc.upstreamTimeouts.Load(),
		},
		Tokens: TokenStats{
			InputTokens:  mc.totalInputTokens.Load(),
			OutputTokens: mc.totalOutputTokens.Load(),
		},
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
