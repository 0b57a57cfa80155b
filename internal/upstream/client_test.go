package upstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/sjson"

	"github.com/jmaietta/promptgenius-backend/internal/config"
	"github.com/jmaietta/promptgenius-backend/internal/upstream"
)

// geminiFixture builds a minimal generateContent success body carrying the
// given text, with field-level tweaks applied through sjson paths.
func geminiFixture(t *testing.T, text string, patches map[string]any) string {
	t.Helper()

	body := `{"candidates":[{"content":{"parts":[{"text":""}]}}],"usageMetadata":{"promptTokenCount":12,"candidatesTokenCount":34}}`
	body, err := sjson.Set(body, "candidates.0.content.parts.0.text", text)
	require.NoError(t, err)

	for path, value := range patches {
		body, err = sjson.Set(body, path, value)
		require.NoError(t, err)
	}
	return body
}

func testUpstreamConfig(endpoint string) config.UpstreamConfig {
	return config.UpstreamConfig{
		Provider:    "gemini",
		Model:       "gemini-1.5-flash",
		Endpoint:    endpoint,
		APIKey:      "test-key-0123456789abcdef",
		Temperature: 0.3,
		MaxTokens:   1000,
		Timeout:     5 * time.Second,
	}
}

func newGeminiClient(t *testing.T, endpoint string) *upstream.Client {
	t.Helper()
	adapter, err := upstream.NewAdapter("gemini")
	require.NoError(t, err)
	return upstream.NewClient(testUpstreamConfig(endpoint), adapter)
}

// =============================================================================
// SUCCESS PATH TESTS
// =============================================================================

func TestClient_Call_Success(t *testing.T) {
	var gotPath, gotKey string
	var gotBody upstream.GeminiRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(geminiFixture(t, `{"structured":"s","detailed":"d","concise":"c"}`, nil)))
	}))
	defer srv.Close()

	client := newGeminiClient(t, srv.URL)
	result, err := client.Call(context.Background(), "improve my prompt")

	require.NoError(t, err)
	assert.Equal(t, `{"structured":"s","detailed":"d","concise":"c"}`, result.Text)
	assert.Equal(t, 12, result.Usage.InputTokens)
	assert.Equal(t, 34, result.Usage.OutputTokens)

	// The request targets the model route and carries the key in the header.
	assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", gotPath)
	assert.Equal(t, "test-key-0123456789abcdef", gotKey)

	// System instruction and user prompt travel in separate slots.
	require.NotNil(t, gotBody.SystemInstruction)
	assert.Contains(t, gotBody.SystemInstruction.Parts[0].Text, "THREE differently-styled improvements")
	require.Len(t, gotBody.Contents, 1)
	assert.Contains(t, gotBody.Contents[0].Parts[0].Text, "improve my prompt")
	require.NotNil(t, gotBody.GenerationConfig)
	assert.Equal(t, 0.3, gotBody.GenerationConfig.Temperature)
	assert.Equal(t, 1000, gotBody.GenerationConfig.MaxOutputTokens)
}

func TestClient_Call_EmptyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(geminiFixture(t, "", nil)))
	}))
	defer srv.Close()

	client := newGeminiClient(t, srv.URL)
	_, err := client.Call(context.Background(), "improve my prompt")

	var failure *upstream.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, upstream.FailInternal, failure.Kind)
}

// =============================================================================
// ERROR CLASSIFICATION TESTS
// =============================================================================

func TestClient_Call_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected upstream.FailureKind
	}{
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"quota"}}`,
			expected: upstream.FailRateLimited,
		},
		{
			name:     "invalid key reported as 400",
			status:   http.StatusBadRequest,
			body:     `{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"API key not valid","details":[{"reason":"API_KEY_INVALID"}]}}`,
			expected: upstream.FailConfig,
		},
		{
			name:     "forbidden",
			status:   http.StatusForbidden,
			body:     `{"error":{"code":403,"status":"PERMISSION_DENIED"}}`,
			expected: upstream.FailConfig,
		},
		{
			name:     "server error",
			status:   http.StatusServiceUnavailable,
			body:     `{"error":{"code":503,"status":"UNAVAILABLE"}}`,
			expected: upstream.FailUnavailable,
		},
		{
			name:     "unexpected 4xx",
			status:   http.StatusConflict,
			body:     `{"error":{"code":409}}`,
			expected: upstream.FailInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := newGeminiClient(t, srv.URL)
			_, err := client.Call(context.Background(), "improve my prompt")

			var failure *upstream.Failure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tt.expected, failure.Kind)
			assert.Equal(t, tt.status, failure.HTTPStatus)
		})
	}
}

// =============================================================================
// TRANSPORT FAILURE TESTS
// =============================================================================

func TestClient_Call_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testUpstreamConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	adapter, err := upstream.NewAdapter("gemini")
	require.NoError(t, err)
	client := upstream.NewClient(cfg, adapter)

	_, err = client.Call(context.Background(), "improve my prompt")

	var failure *upstream.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, upstream.FailTimeout, failure.Kind)
	assert.Zero(t, failure.HTTPStatus)
}

func TestClient_Call_ConnectionRefused(t *testing.T) {
	// A server that is already closed guarantees a refused connection.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	client := newGeminiClient(t, endpoint)
	_, err := client.Call(context.Background(), "improve my prompt")

	var failure *upstream.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, upstream.FailUnavailable, failure.Kind)
}

// =============================================================================
// ADAPTER SELECTION TESTS
// =============================================================================

func TestNewAdapter(t *testing.T) {
	gemini, err := upstream.NewAdapter("gemini")
	require.NoError(t, err)
	assert.Equal(t, "gemini", gemini.Name())

	openai, err := upstream.NewAdapter("openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", openai.Name())

	_, err = upstream.NewAdapter("anthropic")
	assert.Error(t, err)
}

func TestOpenAIAdapter_Call(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test-0123456789abcdef", r.Header.Get("Authorization"))

		body := `{"choices":[{"message":{"role":"assistant","content":""}}],"usage":{"prompt_tokens":8,"completion_tokens":21}}`
		body, err := sjson.Set(body, "choices.0.message.content", `{"structured":"s","detailed":"d","concise":"c"}`)
		require.NoError(t, err)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	cfg := config.UpstreamConfig{
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		Endpoint:  srv.URL,
		APIKey:    "sk-test-0123456789abcdef",
		MaxTokens: 1000,
		Timeout:   5 * time.Second,
	}
	adapter, err := upstream.NewAdapter("openai")
	require.NoError(t, err)
	client := upstream.NewClient(cfg, adapter)

	result, err := client.Call(context.Background(), "improve my prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"structured":"s","detailed":"d","concise":"c"}`, result.Text)
	assert.Equal(t, 8, result.Usage.InputTokens)
	assert.Equal(t, 21, result.Usage.OutputTokens)
}

func TestOpenAIAdapter_ClassifyError(t *testing.T) {
	adapter := &upstream.OpenAIAdapter{}

	assert.Equal(t, upstream.FailConfig,
		adapter.ClassifyError(401, []byte(`{"error":{"message":"bad key"}}`)))
	assert.Equal(t, upstream.FailConfig,
		adapter.ClassifyError(400, []byte(`{"error":{"type":"invalid_api_key"}}`)))
	assert.Equal(t, upstream.FailRateLimited,
		adapter.ClassifyError(429, []byte(`{"error":{"type":"insufficient_quota"}}`)))
	assert.Equal(t, upstream.FailUnavailable,
		adapter.ClassifyError(502, nil))
	assert.Equal(t, upstream.FailInternal,
		adapter.ClassifyError(404, nil))
}

// =============================================================================
// FAILURE ERROR STRING TESTS
// =============================================================================

func TestFailure_Error(t *testing.T) {
	withStatus := &upstream.Failure{Kind: upstream.FailConfig, HTTPStatus: 401, Detail: "gemini returned 401"}
	assert.Contains(t, withStatus.Error(), "config")
	assert.Contains(t, withStatus.Error(), "401")

	transport := &upstream.Failure{Kind: upstream.FailTimeout, Detail: "deadline exceeded"}
	assert.Contains(t, transport.Error(), "timeout")

	// Failures unwrap through errors.As from wrapped chains.
	wrapped := errors.Join(transport, errors.New("outer"))
	var failure *upstream.Failure
	assert.True(t, errors.As(wrapped, &failure))
}
