// HTTP client for the upstream generative-text provider.
//
// DESIGN: One bounded call per invocation, no retries. The deadline is
// enforced through the request context so an expired deadline aborts the
// in-flight request instead of merely abandoning the wait. Failures are
// classified here, at the point of failure, into FailureKind - callers never
// infer categories from error text.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jmaietta/promptgenius-backend/internal/config"
	"github.com/jmaietta/promptgenius-backend/internal/utils"
)

// FailureKind classifies an upstream call failure.
type FailureKind string

// Failure kinds, produced only by this package.
const (
	FailTimeout     FailureKind = "timeout"
	FailRateLimited FailureKind = "rate_limited"
	FailConfig      FailureKind = "config"
	FailUnavailable FailureKind = "unavailable"
	FailInternal    FailureKind = "internal"
)

// Failure is the classified error for an upstream call.
// HTTPStatus is zero for transport-level failures.
type Failure struct {
	Kind       FailureKind
	HTTPStatus int
	Detail     string
}

func (f *Failure) Error() string {
	if f.HTTPStatus > 0 {
		return fmt.Sprintf("upstream %s (status %d): %s", f.Kind, f.HTTPStatus, f.Detail)
	}
	return fmt.Sprintf("upstream %s: %s", f.Kind, f.Detail)
}

// Usage carries token counts reported by the provider, when present.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Result is a successful upstream outcome: the single extracted text field.
type Result struct {
	Text  string
	Usage Usage
}

// Adapter builds provider-specific requests and interprets provider-specific
// responses. Switching providers is a configuration choice, not a rewrite.
type Adapter interface {
	// Name identifies the provider for logs and telemetry.
	Name() string
	// NewRequest builds the outbound HTTP request carrying the system
	// instruction and the user prompt.
	NewRequest(ctx context.Context, cfg config.UpstreamConfig, prompt string) (*http.Request, error)
	// ParseResponse extracts the single text field from a 2xx response body.
	ParseResponse(body []byte) (Result, error)
	// ClassifyError maps a non-2xx status and its body to a FailureKind.
	ClassifyError(status int, body []byte) FailureKind
}

// NewAdapter returns the adapter for the configured provider name.
func NewAdapter(provider string) (Adapter, error) {
	switch provider {
	case "gemini":
		return &GeminiAdapter{}, nil
	case "openai":
		return &OpenAIAdapter{}, nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}

// Client performs the single bounded call to the configured provider.
type Client struct {
	cfg        config.UpstreamConfig
	adapter    Adapter
	httpClient *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client (tests, custom transports).
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates an upstream client for the configured provider.
func NewClient(cfg config.UpstreamConfig, adapter Adapter, opts ...ClientOption) *Client {
	c := &Client{
		cfg:     cfg,
		adapter: adapter,
		// No Timeout on the http.Client itself: the per-call context owns
		// the deadline so cancellation also aborts the in-flight request.
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the active adapter name.
func (c *Client) Provider() string {
	return c.adapter.Name()
}

// Call sends the prompt to the provider and returns the extracted text.
// On failure the returned error is always a *Failure.
func (c *Client) Call(ctx context.Context, prompt string) (Result, error) {
	deadline := c.cfg.Timeout
	if deadline <= 0 {
		deadline = config.DefaultUpstreamTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	req, err := c.adapter.NewRequest(ctx, c.cfg, prompt)
	if err != nil {
		return Result{}, &Failure{Kind: FailInternal, Detail: fmt.Sprintf("build request: %v", err)}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, classifyTransportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxUpstreamResponseSize))
	if err != nil {
		return Result{}, classifyTransportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := c.adapter.ClassifyError(resp.StatusCode, body)
		log.Error().
			Str("provider", c.adapter.Name()).
			Int("status", resp.StatusCode).
			Str("kind", string(kind)).
			Str("response", utils.Truncate(string(body), config.MaxErrorBodyLogLen)).
			Dur("elapsed", time.Since(start)).
			Msg("upstream error response")
		return Result{}, &Failure{
			Kind:       kind,
			HTTPStatus: resp.StatusCode,
			Detail:     fmt.Sprintf("%s returned %d", c.adapter.Name(), resp.StatusCode),
		}
	}

	result, err := c.adapter.ParseResponse(body)
	if err != nil {
		log.Error().
			Str("provider", c.adapter.Name()).
			Err(err).
			Msg("upstream envelope parse failed")
		return Result{}, &Failure{Kind: FailInternal, HTTPStatus: resp.StatusCode, Detail: err.Error()}
	}
	if result.Text == "" {
		return Result{}, &Failure{Kind: FailInternal, HTTPStatus: resp.StatusCode, Detail: "empty upstream payload"}
	}

	log.Debug().
		Str("provider", c.adapter.Name()).
		Int("response_chars", len(result.Text)).
		Dur("elapsed", time.Since(start)).
		Msg("upstream call succeeded")
	return result, nil
}

// classifyTransportError maps a transport-level error to a Failure.
// Deadline expiry (ours or the caller's) is a timeout; everything else at
// this level means the provider could not be reached.
func classifyTransportError(ctx context.Context, err error) *Failure {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Failure{Kind: FailTimeout, Detail: "upstream call deadline exceeded"}
	}
	if errors.Is(err, context.Canceled) {
		return &Failure{Kind: FailTimeout, Detail: "upstream call canceled"}
	}
	return &Failure{Kind: FailUnavailable, Detail: err.Error()}
}
