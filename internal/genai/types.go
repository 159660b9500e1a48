// Package genai provides the generative fallback collaborator: when neither
// a direct pattern match nor the classifier can answer, the utterance is sent
// to an LLM together with the most relevant slice of the knowledge base.
//
// Architecture:
// - Gemini: uses google.golang.org/genai (official SDK)
// - Groq: uses github.com/openai/openai-go/v3 (OpenAI-compatible API)
//
// Fallback strategy:
// 1. Model retry: same provider retried with exponential backoff
// 2. Provider chain: primary provider, then secondary
// 3. Graceful degradation: the caller falls back to a canned response
package genai

import (
	"context"
	"time"
)

// Provider represents an LLM provider.
type Provider string

const (
	// ProviderGemini is Google's Gemini API (non-OpenAI-compatible).
	ProviderGemini Provider = "gemini"
	// ProviderGroq is Groq's API (OpenAI-compatible, fast inference).
	ProviderGroq Provider = "groq"
)

// ProviderEndpoint defines the base URL for OpenAI-compatible providers.
// Gemini is not included as it uses a different SDK.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq: "https://api.groq.com/openai/v1/",
}

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// Responder answers an utterance the core pipeline could not resolve.
// contextJSON is the relevant knowledge base slice rendered as JSON; it may
// be empty when retrieval found nothing.
type Responder interface {
	// Respond returns free text for the utterance, or an error when the
	// provider is unavailable. It never invents a verdict; the prompt
	// constrains it to the supplied context.
	Respond(ctx context.Context, utterance, contextJSON string) (string, error)
	// IsEnabled returns true if the responder is properly initialized.
	IsEnabled() bool
	// Close releases any resources held by the responder.
	Close() error
	// Provider returns the provider type for metrics.
	Provider() Provider
}

// RetryConfig defines retry behavior for LLM API calls.
// Uses AWS-recommended Full Jitter exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	MaxAttempts int

	// InitialDelay is the base delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration

	// Timeout bounds one Respond call across all attempts and providers.
	// Zero leaves only the caller's context deadline in effect.
	Timeout time.Duration
}

// DefaultRetryConfig is the retry policy used when none is configured:
// one retry after a short jittered delay.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     3 * time.Second,
		Timeout:      15 * time.Second,
	}
}
