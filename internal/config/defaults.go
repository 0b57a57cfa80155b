// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined here.
// This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// PROMPT VALIDATION
// =============================================================================

// DefaultMinPromptLength is the minimum trimmed prompt length accepted.
const DefaultMinPromptLength = 3

// DefaultMaxPromptLength is the maximum trimmed prompt length accepted.
const DefaultMaxPromptLength = 2000

// =============================================================================
// RATE LIMITING
// =============================================================================

// DefaultRateLimitWindow is the fixed window for per-client rate limiting.
const DefaultRateLimitWindow = 60 * time.Second

// DefaultRateLimitMax is the number of requests allowed per window.
const DefaultRateLimitMax = 10

// MaxRateLimitBuckets prevents memory exhaustion from too many client buckets.
const MaxRateLimitBuckets = 10000

// =============================================================================
// HTTP AND NETWORKING
// =============================================================================

// DefaultRequestTimeout is the ingress-level deadline for a whole request.
const DefaultRequestTimeout = 30 * time.Second

// DefaultUpstreamTimeout is the deadline for a single upstream provider call.
const DefaultUpstreamTimeout = 25 * time.Second

// MaxRequestBodySize is the maximum allowed inbound request body (10 KiB).
// The only payload is a short JSON object carrying the prompt.
const MaxRequestBodySize = 10 * 1024

// MaxUpstreamResponseSize is the maximum allowed upstream response body (1 MiB).
const MaxUpstreamResponseSize = 1024 * 1024

// MaxErrorBodyLogLen limits upstream error bodies in logs to prevent bloat.
const MaxErrorBodyLogLen = 500

// DefaultShutdownGrace is how long in-flight requests may finish on shutdown.
const DefaultShutdownGrace = 10 * time.Second

// DefaultServerReadTimeout for the HTTP server.
const DefaultServerReadTimeout = 35 * time.Second

// DefaultServerWriteTimeout for the HTTP server.
const DefaultServerWriteTimeout = 35 * time.Second

// DefaultPort is the listening port when PORT is unset.
const DefaultPort = 3000

// =============================================================================
// UPSTREAM PROVIDER DEFAULTS
// =============================================================================

// DefaultProvider is the upstream generative-text provider.
const DefaultProvider = "gemini"

// DefaultGeminiModel is the Gemini model used for prompt rewriting.
const DefaultGeminiModel = "gemini-1.5-flash"

// DefaultOpenAIModel is the model used when the OpenAI adapter is selected.
const DefaultOpenAIModel = "gpt-4o-mini"

// DefaultTemperature keeps rewrites close to the user's wording.
const DefaultTemperature = 0.3

// DefaultMaxOutputTokens bounds the size of the rewritten variants.
const DefaultMaxOutputTokens = 1000

// TokenEstimateRatio is the approximate number of characters per token.
// Used as the fallback when the tiktoken encoding is unavailable.
const TokenEstimateRatio = 4

// =============================================================================
// EXTENSION IDENTITY
// =============================================================================

// DefaultExtensionID is the Chrome extension allowed to call the relay
// in production mode.
const DefaultExtensionID = "lmpjbngkepccmecmcfokcggaedkpljdh"
