package genai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiResponder answers unresolved utterances through an
// OpenAI-compatible provider (Groq). It implements the Responder interface.
type openaiResponder struct {
	client   openai.Client
	model    string
	provider Provider
	enabled  bool
}

// newOpenAIResponder creates an OpenAI-compatible responder.
// Returns nil if apiKey is empty (provider disabled).
func newOpenAIResponder(provider Provider, apiKey, model string) (*openaiResponder, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: provider disabled when no API key
	}

	baseURL, ok := ProviderEndpoint[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
	}
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &openaiResponder{
		client:   client,
		model:    model,
		provider: provider,
		enabled:  true,
	}, nil
}

// Respond sends the utterance plus knowledge base context and returns the
// generated answer.
func (r *openaiResponder) Respond(ctx context.Context, utterance, contextJSON string) (string, error) {
	if r == nil || !r.enabled {
		return "", fmt.Errorf("%s responder not configured", r.Provider())
	}

	params := openai.ChatCompletionNewParams{
		Model: r.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(ResponderSystemPrompt),
			openai.UserMessage(ResponderPrompt(utterance, contextJSON)),
		},
		Temperature: openai.Float(0.3),
		MaxTokens:   openai.Int(256),
	}

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty %s response", r.provider)
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("empty %s response", r.provider)
	}
	return answer, nil
}

// IsEnabled returns true if the responder is properly initialized.
func (r *openaiResponder) IsEnabled() bool {
	return r != nil && r.enabled
}

// Provider returns the provider type for metrics.
func (r *openaiResponder) Provider() Provider {
	if r == nil {
		return ""
	}
	return r.provider
}

// Close releases resources. Safe to call on a nil receiver.
func (r *openaiResponder) Close() error {
	return nil
}
