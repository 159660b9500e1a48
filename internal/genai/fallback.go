package genai

import (
	"context"
	"errors"
	"fmt"
	"time"

	domerrors "github.com/campusbot/campus-chatbot-go/internal/errors"
	"github.com/campusbot/campus-chatbot-go/internal/logger"
	"github.com/campusbot/campus-chatbot-go/internal/metrics"
)

// FallbackResponder wraps a primary and secondary Responder with retry.
// Layers:
// 1. Model retry with backoff (same provider)
// 2. Provider fallback (primary, then secondary)
// 3. Graceful degradation (error returned; the orchestrator cans the reply)
type FallbackResponder struct {
	primary     Responder
	secondary   Responder
	retryConfig RetryConfig
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

// NewFallbackResponder creates a fallback-enabled responder. secondary may
// be nil, in which case only retry is applied to the primary provider.
func NewFallbackResponder(primary, secondary Responder, cfg RetryConfig, log *logger.Logger, m *metrics.Metrics) *FallbackResponder {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultRetryConfig()
	}
	return &FallbackResponder{
		primary:     primary,
		secondary:   secondary,
		retryConfig: cfg,
		logger:      log.WithModule("genai"),
		metrics:     m,
	}
}

// Respond tries the primary responder with retry, then the secondary.
// The whole call is bounded by the configured request timeout.
func (f *FallbackResponder) Respond(ctx context.Context, utterance, contextJSON string) (string, error) {
	if f == nil || f.primary == nil {
		return "", errors.New("fallback responder not configured")
	}

	if f.retryConfig.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.retryConfig.Timeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := f.respondWithRetry(ctx, f.primary, utterance, contextJSON)
	if err == nil {
		f.record(f.primary.Provider(), "success", start)
		return answer, nil
	}

	action := ClassifyError(err)
	f.logger.WithError(err).WithFields(map[string]any{
		"provider": f.primary.Provider().String(),
		"action":   action.String(),
	}).Warn("primary responder failed")
	f.record(f.primary.Provider(), "error", start)

	if action == ActionFail || f.secondary == nil {
		return "", domerrors.NewCollaboratorError("fallback", err)
	}

	secondaryStart := time.Now()
	answer, err = f.respondWithRetry(ctx, f.secondary, utterance, contextJSON)
	if err == nil {
		f.record(f.secondary.Provider(), "success", secondaryStart)
		return answer, nil
	}

	f.record(f.secondary.Provider(), "error", secondaryStart)
	f.logger.WithError(err).WithFields(map[string]any{
		"primary":   f.primary.Provider().String(),
		"secondary": f.secondary.Provider().String(),
	}).Error("all responders failed")

	return "", domerrors.NewCollaboratorError("fallback", fmt.Errorf("all providers failed: %w", err))
}

func (f *FallbackResponder) respondWithRetry(ctx context.Context, r Responder, utterance, contextJSON string) (string, error) {
	var answer string
	err := WithRetry(ctx, f.retryConfig, func(attempt int, err error) {
		f.logger.WithError(err).WithFields(map[string]any{
			"provider": r.Provider().String(),
			"attempt":  attempt,
		}).Debug("retrying responder")
	}, func() error {
		var err error
		answer, err = r.Respond(ctx, utterance, contextJSON)
		return err
	})
	return answer, err
}

func (f *FallbackResponder) record(p Provider, status string, start time.Time) {
	if f.metrics == nil {
		return
	}
	f.metrics.RecordCollaborator("llm_"+p.String(), status, time.Since(start).Seconds())
}

// IsEnabled returns true when at least the primary provider is configured.
func (f *FallbackResponder) IsEnabled() bool {
	return f != nil && f.primary != nil && f.primary.IsEnabled()
}

// Provider returns the primary provider.
func (f *FallbackResponder) Provider() Provider {
	if f == nil || f.primary == nil {
		return ""
	}
	return f.primary.Provider()
}

// Close releases both providers.
func (f *FallbackResponder) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	if f.primary != nil {
		errs = append(errs, f.primary.Close())
	}
	if f.secondary != nil {
		errs = append(errs, f.secondary.Close())
	}
	return errors.Join(errs...)
}
