// Package voice provides the text-to-speech collaborator. Replies are
// synthesized to MP3 files under the static audio directory and served by
// the web layer; synthesis failure never blocks the textual reply.
package voice

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	domerrors "github.com/campusbot/campus-chatbot-go/internal/errors"
	"github.com/campusbot/campus-chatbot-go/internal/logger"
	"github.com/campusbot/campus-chatbot-go/internal/metrics"
)

// Synthesizer converts reply text to an audio file and returns the file
// name relative to the audio directory.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) (string, error)
}

const defaultBaseURL = "https://translate.google.com/translate_tts"

// maxUtteranceLen is the per-request character limit of the TTS endpoint;
// longer replies are truncated at the last sentence boundary that fits.
const maxUtteranceLen = 200

// GoogleSynthesizer fetches speech from the public Google TTS endpoint.
type GoogleSynthesizer struct {
	baseURL    string
	audioDir   string
	httpClient *http.Client
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// Option configures a GoogleSynthesizer.
type Option func(*GoogleSynthesizer)

// WithBaseURL overrides the service endpoint. For tests.
func WithBaseURL(u string) Option {
	return func(s *GoogleSynthesizer) { s.baseURL = u }
}

// WithTimeout overrides the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *GoogleSynthesizer) { s.httpClient.Timeout = d }
}

// New creates a synthesizer writing MP3 files into audioDir.
func New(audioDir string, log *logger.Logger, m *metrics.Metrics, opts ...Option) (*GoogleSynthesizer, error) {
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio directory: %w", err)
	}
	s := &GoogleSynthesizer{
		baseURL:  defaultBaseURL,
		audioDir: audioDir,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger:  log.WithModule("voice"),
		metrics: m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Synthesize fetches speech for the text and writes it to a uniquely named
// MP3 file. Returns the file name (not the full path).
func (s *GoogleSynthesizer) Synthesize(ctx context.Context, text, lang string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("nothing to synthesize")
	}
	if lang == "" {
		lang = "en"
	}
	text = truncate(text, maxUtteranceLen)

	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build tts request: %w", err)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.record("error", start)
		return "", domerrors.NewCollaboratorError("tts", fmt.Errorf("tts request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.record("error", start)
		return "", domerrors.NewCollaboratorError("tts", fmt.Errorf("tts service returned %d", resp.StatusCode))
	}

	name := uuid.NewString() + ".mp3"
	path := filepath.Join(s.audioDir, name)
	f, err := os.Create(path)
	if err != nil {
		s.record("error", start)
		return "", fmt.Errorf("create audio file: %w", err)
	}

	_, err = io.Copy(f, io.LimitReader(resp.Body, 8<<20))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		s.record("error", start)
		return "", fmt.Errorf("write audio file: %w", err)
	}

	s.record("success", start)
	s.logger.WithFields(map[string]any{"file": name, "lang": lang}).Debug("synthesized reply audio")
	return name, nil
}

// CleanOlderThan deletes audio files older than ttl and returns how many
// were removed. Called periodically so the audio directory does not grow
// without bound.
func (s *GoogleSynthesizer) CleanOlderThan(ttl time.Duration) (int, error) {
	entries, err := os.ReadDir(s.audioDir)
	if err != nil {
		return 0, fmt.Errorf("read audio directory: %w", err)
	}

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mp3") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.audioDir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (s *GoogleSynthesizer) record(status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCollaborator("tts", status, time.Since(start).Seconds())
}

// truncate cuts text at the last sentence or word boundary within limit.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	for _, sep := range []string{". ", "! ", "? ", " "} {
		if i := strings.LastIndex(cut, sep); i > 0 {
			return strings.TrimSpace(cut[:i+1])
		}
	}
	return cut
}
