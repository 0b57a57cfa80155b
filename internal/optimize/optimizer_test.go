package optimize_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmaietta/promptgenius-backend/internal/config"
	"github.com/jmaietta/promptgenius-backend/internal/optimize"
	"github.com/jmaietta/promptgenius-backend/internal/upstream"
)

// fakeCaller counts calls and returns a canned result or failure.
type fakeCaller struct {
	calls  int
	result upstream.Result
	err    error
}

func (f *fakeCaller) Call(ctx context.Context, prompt string) (upstream.Result, error) {
	f.calls++
	if f.err != nil {
		return upstream.Result{}, f.err
	}
	return f.result, nil
}

func (f *fakeCaller) Provider() string { return "fake" }

func testLimits() config.LimitsConfig {
	return config.LimitsConfig{MinPromptLength: 3, MaxPromptLength: 2000}
}

const threeKeyDoc = `{"structured": "s", "detailed": "d", "concise": "c"}`

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestOptimize_Validation(t *testing.T) {
	tests := []struct {
		name        string
		prompt      string
		expectedMsg string
	}{
		{name: "empty", prompt: "", expectedMsg: "Valid prompt is required"},
		{name: "whitespace only", prompt: "   \n\t ", expectedMsg: "Valid prompt is required"},
		{name: "too short", prompt: "hi", expectedMsg: "Prompt too short"},
		{name: "too short after trim", prompt: "  hi  ", expectedMsg: "Prompt too short"},
		{name: "too long", prompt: strings.Repeat("a", 2001), expectedMsg: "Prompt too long (max 2000 characters)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &fakeCaller{result: upstream.Result{Text: threeKeyDoc}}
			o := optimize.New(testLimits(), caller, true)

			outcome, err := o.Optimize(context.Background(), tt.prompt)

			require.Nil(t, outcome)
			require.NotNil(t, err)
			assert.Equal(t, optimize.CategoryValidation, err.Category)
			assert.Equal(t, tt.expectedMsg, err.Message)
			// Invalid input never reaches the provider.
			assert.Zero(t, caller.calls)
		})
	}
}

func TestOptimize_BoundaryLengths(t *testing.T) {
	caller := &fakeCaller{result: upstream.Result{Text: threeKeyDoc}}
	o := optimize.New(testLimits(), caller, true)

	// Exactly at the minimum and maximum both pass validation.
	_, err := o.Optimize(context.Background(), "abc")
	assert.Nil(t, err)

	_, err = o.Optimize(context.Background(), strings.Repeat("a", 2000))
	assert.Nil(t, err)

	assert.Equal(t, 2, caller.calls)
}

// =============================================================================
// CREDENTIAL AND FAILURE TESTS
// =============================================================================

func TestOptimize_NoCredential(t *testing.T) {
	caller := &fakeCaller{result: upstream.Result{Text: threeKeyDoc}}
	o := optimize.New(testLimits(), caller, false)

	outcome, err := o.Optimize(context.Background(), "make this prompt better")

	require.Nil(t, outcome)
	require.NotNil(t, err)
	assert.Equal(t, optimize.CategoryConfig, err.Category)
	assert.Equal(t, "Service configuration error", err.Message)
	// Without a credential no network call is attempted.
	assert.Zero(t, caller.calls)
}

func TestOptimize_UpstreamFailureMapping(t *testing.T) {
	tests := []struct {
		name     string
		kind     upstream.FailureKind
		category optimize.ErrorCategory
		message  string
	}{
		{name: "timeout", kind: upstream.FailTimeout, category: optimize.CategoryTimeout, message: "Request timed out, please try again"},
		{name: "rate limited", kind: upstream.FailRateLimited, category: optimize.CategoryRateLimited, message: "Service temporarily unavailable, please try again later"},
		{name: "config", kind: upstream.FailConfig, category: optimize.CategoryConfig, message: "Service configuration error"},
		{name: "unavailable", kind: upstream.FailUnavailable, category: optimize.CategoryUnavailable, message: "Optimization service unavailable"},
		{name: "internal", kind: upstream.FailInternal, category: optimize.CategoryInternal, message: "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &fakeCaller{err: &upstream.Failure{Kind: tt.kind, Detail: "boom"}}
			o := optimize.New(testLimits(), caller, true)

			outcome, err := o.Optimize(context.Background(), "make this prompt better")

			require.Nil(t, outcome)
			require.NotNil(t, err)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.message, err.Message)
			// Upstream detail never leaks into the caller-facing message.
			assert.NotContains(t, err.Message, "boom")
		})
	}
}

func TestOptimize_UnclassifiedErrorIsInternal(t *testing.T) {
	caller := &fakeCaller{err: context.DeadlineExceeded}
	o := optimize.New(testLimits(), caller, true)

	outcome, err := o.Optimize(context.Background(), "make this prompt better")

	require.Nil(t, outcome)
	require.NotNil(t, err)
	assert.Equal(t, optimize.CategoryInternal, err.Category)
}

// =============================================================================
// SUCCESS PATH TESTS
// =============================================================================

func TestOptimize_Success(t *testing.T) {
	caller := &fakeCaller{result: upstream.Result{
		Text:  threeKeyDoc,
		Usage: upstream.Usage{InputTokens: 42, OutputTokens: 17},
	}}
	o := optimize.New(testLimits(), caller, true)

	outcome, err := o.Optimize(context.Background(), "make this prompt better")

	require.Nil(t, err)
	require.NotNil(t, outcome)
	assert.False(t, outcome.Degraded)
	assert.Equal(t, "s", outcome.Versions.Structured)
	assert.Equal(t, "d", outcome.Versions.Detailed)
	assert.Equal(t, "c", outcome.Versions.Concise)
	assert.Equal(t, 42, outcome.Usage.InputTokens)
	assert.Equal(t, 17, outcome.Usage.OutputTokens)
	// Exactly one upstream call on the success path.
	assert.Equal(t, 1, caller.calls)
}

func TestOptimize_DegradedIsStillSuccess(t *testing.T) {
	caller := &fakeCaller{result: upstream.Result{Text: "plain prose answer"}}
	o := optimize.New(testLimits(), caller, true)

	outcome, err := o.Optimize(context.Background(), "make this prompt better")

	require.Nil(t, err)
	require.NotNil(t, outcome)
	assert.True(t, outcome.Degraded)
	assert.Equal(t, "plain prose answer", outcome.Versions.Structured)
	assert.Equal(t, "plain prose answer", outcome.Versions.Detailed)
	assert.Equal(t, "plain prose answer", outcome.Versions.Concise)
}
