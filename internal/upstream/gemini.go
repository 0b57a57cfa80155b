package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jmaietta/promptgenius-backend/internal/config"
)

// DefaultGeminiBaseURL is the Google generative language API endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiAdapter targets the Gemini generateContent API.
type GeminiAdapter struct{}

// Name identifies the provider.
func (a *GeminiAdapter) Name() string { return "gemini" }

// NewRequest builds the generateContent request. The key travels in the
// x-goog-api-key header, never in the URL, so it cannot leak through logs.
func (a *GeminiAdapter) NewRequest(ctx context.Context, cfg config.UpstreamConfig, prompt string) (*http.Request, error) {
	payload := BuildGeminiRequest(prompt, cfg.Temperature, cfg.MaxTokens)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	base := cfg.Endpoint
	if base == "" {
		base = DefaultGeminiBaseURL
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(base, "/"), cfg.Model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", cfg.APIKey)
	return req, nil
}

// ParseResponse extracts the first candidate's text.
func (a *GeminiAdapter) ParseResponse(body []byte) (Result, error) {
	var resp GeminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Result{}, fmt.Errorf("decode gemini response: %w", err)
	}
	text, err := ExtractGeminiText(&resp)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Text: text,
		Usage: Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		},
	}, nil
}

// ClassifyError maps Gemini error responses to failure kinds. Gemini reports
// a bad key as 400 INVALID_ARGUMENT with an API_KEY_INVALID reason, and
// permission problems as 403, so the structured error payload is consulted
// before the status code.
func (a *GeminiAdapter) ClassifyError(status int, body []byte) FailureKind {
	errStatus := gjson.GetBytes(body, "error.status").String()
	reason := gjson.GetBytes(body, "error.details.0.reason").String()

	switch {
	case reason == "API_KEY_INVALID",
		errStatus == "UNAUTHENTICATED",
		errStatus == "PERMISSION_DENIED",
		status == http.StatusUnauthorized,
		status == http.StatusForbidden:
		return FailConfig
	case status == http.StatusTooManyRequests, errStatus == "RESOURCE_EXHAUSTED":
		return FailRateLimited
	case status >= 500:
		return FailUnavailable
	default:
		return FailInternal
	}
}
