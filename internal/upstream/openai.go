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

// DefaultOpenAIBaseURL is the OpenAI API endpoint. Any chat-completions
// compatible server works through the endpoint override.
const DefaultOpenAIBaseURL = "https://api.openai.com"

// OpenAIAdapter targets the OpenAI chat completions API.
type OpenAIAdapter struct{}

// Name identifies the provider.
func (a *OpenAIAdapter) Name() string { return "openai" }

// NewRequest builds the chat completions request.
func (a *OpenAIAdapter) NewRequest(ctx context.Context, cfg config.UpstreamConfig, prompt string) (*http.Request, error) {
	payload := BuildOpenAIRequest(cfg.Model, prompt, cfg.Temperature, cfg.MaxTokens)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	base := cfg.Endpoint
	if base == "" {
		base = DefaultOpenAIBaseURL
	}
	url := strings.TrimRight(base, "/") + "/v1/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	return req, nil
}

// ParseResponse extracts the first choice's message content.
func (a *OpenAIAdapter) ParseResponse(body []byte) (Result, error) {
	var resp OpenAIChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Result{}, fmt.Errorf("decode openai response: %w", err)
	}
	text, err := ExtractOpenAIText(&resp)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Text: text,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// ClassifyError maps OpenAI error responses to failure kinds.
// insufficient_quota arrives as 429 but is an account problem, not transient
// load - it still maps to rate limited so the caller backs off.
func (a *OpenAIAdapter) ClassifyError(status int, body []byte) FailureKind {
	errType := gjson.GetBytes(body, "error.type").String()

	switch {
	case status == http.StatusUnauthorized, errType == "invalid_api_key":
		return FailConfig
	case status == http.StatusTooManyRequests:
		return FailRateLimited
	case status >= 500:
		return FailUnavailable
	default:
		return FailInternal
	}
}
