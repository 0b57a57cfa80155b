package optimize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jmaietta/promptgenius-backend/internal/config"
	"github.com/jmaietta/promptgenius-backend/internal/upstream"
)

// User-visible failure messages. Upstream detail never reaches these.
const (
	msgPromptRequired = "Valid prompt is required"
	msgPromptTooShort = "Prompt too short"
	msgConfigError    = "Service configuration error"
	msgRateLimited    = "Service temporarily unavailable, please try again later"
	msgTimeout        = "Request timed out, please try again"
	msgUnavailable    = "Optimization service unavailable"
	msgInternal       = "Internal server error"
	promptTooLongFmt  = "Prompt too long (max %d characters)"
)

// Caller is the upstream dependency of the orchestrator. *upstream.Client
// satisfies it; tests substitute a fake.
type Caller interface {
	Call(ctx context.Context, prompt string) (upstream.Result, error)
	Provider() string
}

// Outcome is a successful (possibly degraded) optimization.
type Outcome struct {
	Versions VersionSet
	Degraded bool
	Usage    upstream.Usage
	Elapsed  time.Duration
}

// Optimizer drives validation, the single upstream call, and normalization.
type Optimizer struct {
	limits        config.LimitsConfig
	client        Caller
	hasCredential bool
}

// New creates an optimizer. hasCredential reflects whether a provider key is
// configured; when false no network call is ever attempted.
func New(limits config.LimitsConfig, client Caller, hasCredential bool) *Optimizer {
	return &Optimizer{
		limits:        limits,
		client:        client,
		hasCredential: hasCredential,
	}
}

// Validate checks the prompt bounds and returns the trimmed prompt.
// These are the only checks that run before any network activity.
func (o *Optimizer) Validate(prompt string) (string, *Error) {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return "", newError(CategoryValidation, msgPromptRequired)
	}
	if len(trimmed) > o.limits.MaxPromptLength {
		return "", newError(CategoryValidation, fmt.Sprintf(promptTooLongFmt, o.limits.MaxPromptLength))
	}
	if len(trimmed) < o.limits.MinPromptLength {
		return "", newError(CategoryValidation, msgPromptTooShort)
	}
	return trimmed, nil
}

// Optimize produces the three-variant payload for one prompt. Exactly one
// upstream call is made on the success path, never more.
func (o *Optimizer) Optimize(ctx context.Context, prompt string) (*Outcome, *Error) {
	trimmed, verr := o.Validate(prompt)
	if verr != nil {
		return nil, verr
	}

	if !o.hasCredential {
		log.Error().Msg("optimize rejected: no provider credential configured")
		return nil, newError(CategoryConfig, msgConfigError)
	}

	start := time.Now()
	result, err := o.client.Call(ctx, trimmed)
	if err != nil {
		return nil, o.classifyUpstreamError(err)
	}

	versions, degraded := Normalize(result.Text)
	if degraded {
		log.Warn().
			Str("provider", o.client.Provider()).
			Int("raw_chars", len(result.Text)).
			Msg("upstream answer not parseable as three-key document, degrading")
	}

	return &Outcome{
		Versions: versions,
		Degraded: degraded,
		Usage:    result.Usage,
		Elapsed:  time.Since(start),
	}, nil
}

// classifyUpstreamError maps the client's classified failure to the caller
// facing category. The kind was fixed at the point of failure; nothing here
// inspects error text.
func (o *Optimizer) classifyUpstreamError(err error) *Error {
	var failure *upstream.Failure
	if !errors.As(err, &failure) {
		log.Error().Err(err).Msg("unclassified upstream error")
		return newError(CategoryInternal, msgInternal)
	}

	log.Error().
		Str("provider", o.client.Provider()).
		Str("kind", string(failure.Kind)).
		Int("status", failure.HTTPStatus).
		Str("detail", failure.Detail).
		Msg("upstream call failed")

	switch failure.Kind {
	case upstream.FailTimeout:
		return newError(CategoryTimeout, msgTimeout)
	case upstream.FailRateLimited:
		return newError(CategoryRateLimited, msgRateLimited)
	case upstream.FailConfig:
		return newError(CategoryConfig, msgConfigError)
	case upstream.FailUnavailable:
		return newError(CategoryUnavailable, msgUnavailable)
	default:
		return newError(CategoryInternal, msgInternal)
	}
}
