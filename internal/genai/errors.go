package genai

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// ErrorAction defines the action to take based on error type.
type ErrorAction int

const (
	// ActionRetry indicates the request should be retried with the same provider.
	ActionRetry ErrorAction = iota
	// ActionFallback indicates fallback to another provider should be attempted.
	ActionFallback
	// ActionFail indicates the request should fail immediately.
	ActionFail
)

// String returns a human-readable string for the error action.
func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// LLMError wraps an error with the HTTP status for retry/fallback decisions.
type LLMError struct {
	Err        error
	StatusCode int
	Provider   Provider
}

func (e *LLMError) Error() string {
	if e.StatusCode > 0 {
		return e.Err.Error() + " (status: " + strconv.Itoa(e.StatusCode) + ")"
	}
	return e.Err.Error()
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// ClassifyError determines the appropriate action for an LLM API error:
// transient errors (429, 5xx, network) retry, quota exhaustion falls back
// to the other provider, permanent errors (400, 401, 403, 404) fail.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFail
	}

	if errors.Is(err, context.Canceled) {
		return ActionFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionRetry
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.StatusCode > 0 {
		return classifyStatusCode(llmErr.StatusCode)
	}

	errStr := strings.ToLower(err.Error())

	// Quota exhaustion is more severe than rate limiting; switch provider.
	if containsAny(errStr, "quota", "daily limit", "monthly limit", "billing") {
		return ActionFallback
	}
	if containsAny(errStr, "rate limit", "too many requests", "resource_exhausted", "429") {
		return ActionRetry
	}
	if containsAny(errStr, "unavailable", "500", "502", "503", "504",
		"timeout", "connection refused", "connection reset", "eof") {
		return ActionRetry
	}
	if containsAny(errStr, "400", "401", "403", "404",
		"invalid api key", "unauthorized", "not found", "bad request") {
		return ActionFail
	}

	// Unknown errors get one shot at the other provider.
	return ActionFallback
}

func classifyStatusCode(code int) ErrorAction {
	switch {
	case code == 429 || code >= 500:
		return ActionRetry
	case code == 402:
		return ActionFallback
	case code >= 400:
		return ActionFail
	default:
		return ActionFallback
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
