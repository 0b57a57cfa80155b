// Package ingress owns the inbound HTTP surface of the relay.
//
// DESIGN: Request flow for /api/optimize:
//   - recovery + request ID middleware (all routes)
//   - CORS / origin allow-list
//   - body size ceiling, per-client rate limit, request-level deadline
//   - handleOptimize(): drives the optimizer and maps ErrorCategory to
//     the externally visible status code
//
// Also includes the health probe, the loopback-only stats endpoint, and the
// JSON 404 handler.
package ingress

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jmaietta/promptgenius-backend/internal/config"
	"github.com/jmaietta/promptgenius-backend/internal/monitoring"
	"github.com/jmaietta/promptgenius-backend/internal/optimize"
	"github.com/jmaietta/promptgenius-backend/internal/ratelimit"
)

// HeaderRequestID carries the request ID to the caller.
const HeaderRequestID = "X-Request-ID"

// Server wires the middleware chain and handlers around the optimizer.
type Server struct {
	cfg       *config.Config
	optimizer *optimize.Optimizer
	limiter   *ratelimit.Limiter
	metrics   *monitoring.MetricsCollector
	tracker   *monitoring.Tracker
	provider  string
	model     string

	httpServer *http.Server
}

// New creates the ingress server. The limiter is injected so tests can
// control its clock.
func New(cfg *config.Config, optimizer *optimize.Optimizer, limiter *ratelimit.Limiter,
	metrics *monitoring.MetricsCollector, tracker *monitoring.Tracker) *Server {

	s := &Server{
		cfg:       cfg,
		optimizer: optimizer,
		limiter:   limiter,
		metrics:   metrics,
		tracker:   tracker,
		provider:  cfg.Upstream.Provider,
		model:     cfg.Upstream.Model,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

// Handler builds the full route tree with middleware applied. Exposed so
// tests can drive the server through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/optimize", s.guarded(s.handleOptimize))
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/", s.handleNotFound)

	return s.withRecovery(s.withRequestID(s.withCORS(mux)))
}

// guarded applies the /api protections: body ceiling, rate limit, deadline.
func (s *Server) guarded(next http.HandlerFunc) http.HandlerFunc {
	return s.withBodyLimit(s.withRateLimit(s.withDeadline(next)))
}

// Start runs the HTTP server until Shutdown is called. A failure to bind the
// port is process-fatal and surfaces here.
func (s *Server) Start() error {
	log.Info().
		Int("port", s.cfg.Server.Port).
		Str("env", s.cfg.Env).
		Str("provider", s.provider).
		Str("model", s.model).
		Msg("relay listening")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting new requests and lets in-flight ones finish
// until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down, draining in-flight requests")
	return s.httpServer.Shutdown(ctx)
}
