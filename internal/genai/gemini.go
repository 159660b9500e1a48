package genai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// geminiResponder answers unresolved utterances through the Gemini API.
// It implements the Responder interface.
type geminiResponder struct {
	client *genai.Client
	model  string
}

// newGeminiResponder creates a Gemini-backed responder.
// Returns nil if apiKey is empty (provider disabled).
func newGeminiResponder(ctx context.Context, apiKey, model string) (*geminiResponder, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: provider disabled when no API key
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiResponder{client: client, model: model}, nil
}

// Respond sends the utterance plus knowledge base context to Gemini and
// returns the generated answer.
func (r *geminiResponder) Respond(ctx context.Context, utterance, contextJSON string) (string, error) {
	if r == nil || r.client == nil {
		return "", fmt.Errorf("gemini responder not configured")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(ResponderSystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.3),
		MaxOutputTokens:   256,
	}

	prompt := ResponderPrompt(utterance, contextJSON)
	resp, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty gemini response")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.WriteString(part.Text)
		}
	}

	answer := strings.TrimSpace(out.String())
	if answer == "" {
		return "", fmt.Errorf("empty gemini response")
	}
	return answer, nil
}

// IsEnabled returns true if the responder is properly initialized.
func (r *geminiResponder) IsEnabled() bool {
	return r != nil && r.client != nil
}

// Provider returns the provider type for metrics.
func (r *geminiResponder) Provider() Provider {
	return ProviderGemini
}

// Close releases resources. Safe to call on a nil receiver.
func (r *geminiResponder) Close() error {
	return nil
}
