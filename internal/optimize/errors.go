package optimize

import "fmt"

// ErrorCategory classifies an optimization failure. Each category maps to
// exactly one externally visible HTTP status; the mapping lives in the
// ingress layer.
type ErrorCategory string

// Failure categories.
const (
	CategoryValidation  ErrorCategory = "validation"
	CategoryConfig      ErrorCategory = "config"
	CategoryRateLimited ErrorCategory = "rate_limited"
	CategoryUnavailable ErrorCategory = "upstream_unavailable"
	CategoryTimeout     ErrorCategory = "timeout"
	CategoryInternal    ErrorCategory = "internal"
)

// Error is a classified optimization failure. Message is safe to show to
// the caller; upstream detail stays in the logs.
type Error struct {
	Category ErrorCategory
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func newError(category ErrorCategory, message string) *Error {
	return &Error{Category: category, Message: message}
}
