// Package translate provides the language round-trip collaborator. Incoming
// utterances are translated to the pivot language before classification and
// replies are translated back to the caller's language. Translation is best
// effort: any failure returns the original text so the pipeline keeps going.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"

	domerrors "github.com/campusbot/campus-chatbot-go/internal/errors"
	"github.com/campusbot/campus-chatbot-go/internal/logger"
	"github.com/campusbot/campus-chatbot-go/internal/metrics"
)

// Result is one translation outcome. DetectedLang is the source language
// reported by the service; it drives the reply-side translation.
type Result struct {
	Text         string
	DetectedLang string
}

// Translator converts text between languages. Implementations must degrade:
// on failure they return the input text unchanged together with the error,
// never an empty string.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (Result, error)
}

const defaultBaseURL = "https://translate.googleapis.com/translate_a/single"

// GoogleTranslator calls the public Google translate endpoint.
type GoogleTranslator struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// Option configures a GoogleTranslator.
type Option func(*GoogleTranslator)

// WithBaseURL overrides the service endpoint. For tests.
func WithBaseURL(u string) Option {
	return func(t *GoogleTranslator) { t.baseURL = u }
}

// WithTimeout overrides the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(t *GoogleTranslator) { t.httpClient.Timeout = d }
}

// New creates a translator with sane defaults.
func New(log *logger.Logger, m *metrics.Metrics, opts ...Option) *GoogleTranslator {
	t := &GoogleTranslator{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:  log.WithModule("translate"),
		metrics: m,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate converts text into targetLang, auto-detecting the source.
// On any failure it returns the original text with the error so callers can
// continue in the source language.
func (t *GoogleTranslator) Translate(ctx context.Context, text, targetLang string) (Result, error) {
	// The degraded result leaves DetectedLang empty: a failed call detected
	// nothing, and callers must not treat the target as the source.
	degraded := Result{Text: text}

	if strings.TrimSpace(text) == "" {
		return degraded, nil
	}
	if !ValidLang(targetLang) {
		return degraded, fmt.Errorf("invalid target language %q", targetLang)
	}

	start := time.Now()
	result, err := t.translateOnce(ctx, text, targetLang)
	t.record(err, start)
	if err != nil {
		t.logger.WithError(err).WithField("target", targetLang).Warn("translation failed, using original text")
		return degraded, domerrors.NewCollaboratorError("translator", err)
	}
	return result, nil
}

func (t *GoogleTranslator) translateOnce(ctx context.Context, text, targetLang string) (Result, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", targetLang)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("build translate request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("translate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("translate service returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read translate response: %w", err)
	}
	return parseResponse(body)
}

// parseResponse decodes the endpoint's nested-array payload:
// [[["translated","original",...],...],...,"detected-lang",...]
func parseResponse(body []byte) (Result, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{}, fmt.Errorf("decode translate response: %w", err)
	}
	if len(payload) == 0 {
		return Result{}, fmt.Errorf("empty translate response")
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return Result{}, fmt.Errorf("decode translate segments: %w", err)
	}

	var out strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var piece string
		if err := json.Unmarshal(seg[0], &piece); err == nil {
			out.WriteString(piece)
		}
	}
	if out.Len() == 0 {
		return Result{}, fmt.Errorf("translate response has no text")
	}

	result := Result{Text: out.String()}
	if len(payload) > 2 {
		var detected string
		if err := json.Unmarshal(payload[2], &detected); err == nil {
			result.DetectedLang = detected
		}
	}
	return result, nil
}

func (t *GoogleTranslator) record(err error, start time.Time) {
	if t.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	t.metrics.RecordCollaborator("translate", status, time.Since(start).Seconds())
}

// ValidLang reports whether code parses as a BCP 47 language tag.
func ValidLang(code string) bool {
	if code == "" {
		return false
	}
	_, err := language.Parse(code)
	return err == nil
}
