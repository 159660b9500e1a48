package genai

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// CalculateBackoff calculates the delay before the next retry attempt.
// Uses the AWS-recommended Full Jitter algorithm:
//
//	delay = random(0, min(maxDelay, initialDelay * 2^(attempt-1)))
//
// Reference: https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter/
func CalculateBackoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}

	exp := math.Pow(2, float64(attempt-1))
	delay := time.Duration(float64(initial) * exp)
	if delay > max {
		delay = max
	}
	if delay <= 0 {
		return 0
	}

	// crypto/rand gives a uniform distribution without modulo bias.
	jitter, err := rand.Int(rand.Reader, big.NewInt(int64(delay)))
	if err != nil {
		return delay / 2
	}
	return time.Duration(jitter.Int64())
}

// Sleep waits for the specified duration, respecting context cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WithRetry executes fn with retry on transient errors up to
// cfg.MaxAttempts times. onRetry, when non-nil, is called before each
// retry for metrics and logging.
func WithRetry(ctx context.Context, cfg RetryConfig, onRetry func(attempt int, err error), fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if ClassifyError(err) != ActionRetry {
			return err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		if onRetry != nil {
			onRetry(attempt+1, err)
		}
		if err := Sleep(ctx, CalculateBackoff(attempt+1, cfg.InitialDelay, cfg.MaxDelay)); err != nil {
			return err
		}
	}

	return lastErr
}
