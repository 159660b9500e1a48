package genai

import (
	"context"
	"fmt"

	"github.com/campusbot/campus-chatbot-go/internal/config"
	"github.com/campusbot/campus-chatbot-go/internal/logger"
	"github.com/campusbot/campus-chatbot-go/internal/metrics"
)

// NewFromConfig builds the responder chain from configuration: Gemini as
// primary when its key is set, Groq as secondary (or primary when Gemini
// is absent). Returns nil when no provider is configured; callers treat a
// nil responder as "feature disabled" and use canned replies.
func NewFromConfig(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*FallbackResponder, error) {
	var responders []Responder

	if cfg.GeminiAPIKey != "" {
		gemini, err := newGeminiResponder(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("init gemini responder: %w", err)
		}
		responders = append(responders, gemini)
	}

	if cfg.GroqAPIKey != "" {
		groq, err := newOpenAIResponder(ProviderGroq, cfg.GroqAPIKey, cfg.GroqModel)
		if err != nil {
			return nil, fmt.Errorf("init groq responder: %w", err)
		}
		responders = append(responders, groq)
	}

	if len(responders) == 0 {
		return nil, nil //nolint:nilnil // Intentional: feature disabled without API keys
	}

	var secondary Responder
	if len(responders) > 1 {
		secondary = responders[1]
	}
	retry := DefaultRetryConfig()
	if cfg.FallbackTimeout > 0 {
		retry.Timeout = cfg.FallbackTimeout
	}
	return NewFallbackResponder(responders[0], secondary, retry, log, m), nil
}
