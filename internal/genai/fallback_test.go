package genai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domerrors "github.com/campusbot/campus-chatbot-go/internal/errors"
	"github.com/campusbot/campus-chatbot-go/internal/logger"
)

// fakeResponder is a scripted Responder for exercising the fallback chain.
type fakeResponder struct {
	provider Provider
	answers  []string
	errs     []error
	calls    int
}

func (f *fakeResponder) Respond(_ context.Context, _, _ string) (string, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(f.answers) {
		return f.answers[i], nil
	}
	return "", errors.New("script exhausted")
}

func (f *fakeResponder) IsEnabled() bool    { return true }
func (f *fakeResponder) Close() error       { return nil }
func (f *fakeResponder) Provider() Provider { return f.provider }

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestFallbackPrimarySucceeds(t *testing.T) {
	t.Parallel()

	primary := &fakeResponder{provider: ProviderGemini, answers: []string{"the fee is 95000"}}
	secondary := &fakeResponder{provider: ProviderGroq}
	f := NewFallbackResponder(primary, secondary, fastRetry(), logger.NewNop(), nil)

	answer, err := f.Respond(context.Background(), "fees?", "")
	if err != nil {
		t.Fatalf("Respond() error: %v", err)
	}
	if answer != "the fee is 95000" {
		t.Errorf("answer = %q", answer)
	}
	if secondary.calls != 0 {
		t.Error("secondary called despite primary success")
	}
}

func TestFallbackRetriesTransientError(t *testing.T) {
	t.Parallel()

	primary := &fakeResponder{
		provider: ProviderGemini,
		errs:     []error{errors.New("503 service unavailable"), nil},
		answers:  []string{"", "answer after retry"},
	}
	f := NewFallbackResponder(primary, nil, fastRetry(), logger.NewNop(), nil)

	answer, err := f.Respond(context.Background(), "q", "")
	if err != nil {
		t.Fatalf("Respond() error: %v", err)
	}
	if answer != "answer after retry" {
		t.Errorf("answer = %q", answer)
	}
	if primary.calls != 2 {
		t.Errorf("primary called %d times, want 2", primary.calls)
	}
}

func TestFallbackSwitchesProvider(t *testing.T) {
	t.Parallel()

	primary := &fakeResponder{
		provider: ProviderGemini,
		errs:     []error{errors.New("quota exceeded")},
	}
	secondary := &fakeResponder{provider: ProviderGroq, answers: []string{"from groq"}}
	f := NewFallbackResponder(primary, secondary, fastRetry(), logger.NewNop(), nil)

	answer, err := f.Respond(context.Background(), "q", "")
	if err != nil {
		t.Fatalf("Respond() error: %v", err)
	}
	if answer != "from groq" {
		t.Errorf("answer = %q", answer)
	}
	// Quota errors skip retry on the same provider.
	if primary.calls != 1 {
		t.Errorf("primary called %d times, want 1", primary.calls)
	}
}

func TestFallbackPermanentErrorFailsFast(t *testing.T) {
	t.Parallel()

	primary := &fakeResponder{
		provider: ProviderGemini,
		errs:     []error{errors.New("401 invalid api key")},
	}
	secondary := &fakeResponder{provider: ProviderGroq, answers: []string{"unused"}}
	f := NewFallbackResponder(primary, secondary, fastRetry(), logger.NewNop(), nil)

	if _, err := f.Respond(context.Background(), "q", ""); err == nil {
		t.Fatal("expected error for permanent failure")
	}
	if secondary.calls != 0 {
		t.Error("secondary called for a permanent error")
	}
}

func TestFallbackAllProvidersFail(t *testing.T) {
	t.Parallel()

	primary := &fakeResponder{provider: ProviderGemini, errs: []error{errors.New("quota exceeded")}}
	secondary := &fakeResponder{provider: ProviderGroq, errs: []error{errors.New("quota exceeded")}}
	f := NewFallbackResponder(primary, secondary, fastRetry(), logger.NewNop(), nil)

	_, err := f.Respond(context.Background(), "q", "")
	if err == nil {
		t.Fatal("expected error when all providers fail")
	}
	if !errors.Is(err, domerrors.ErrCollaboratorUnavailable) {
		t.Errorf("error %v does not match ErrCollaboratorUnavailable", err)
	}
}

// blockingResponder hangs until its context is done, standing in for a
// provider that accepts the request but never answers.
type blockingResponder struct{ provider Provider }

func (b *blockingResponder) Respond(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (b *blockingResponder) IsEnabled() bool    { return true }
func (b *blockingResponder) Close() error       { return nil }
func (b *blockingResponder) Provider() Provider { return b.provider }

func TestFallbackRequestTimeout(t *testing.T) {
	t.Parallel()

	cfg := fastRetry()
	cfg.Timeout = 20 * time.Millisecond
	primary := &blockingResponder{provider: ProviderGemini}
	f := NewFallbackResponder(primary, nil, cfg, logger.NewNop(), nil)

	start := time.Now()
	_, err := f.Respond(context.Background(), "q", "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Respond() = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("request ran %v past its %v timeout", elapsed, cfg.Timeout)
	}
}

func TestFallbackContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &fakeResponder{provider: ProviderGemini, answers: []string{"never"}}
	f := NewFallbackResponder(primary, nil, fastRetry(), logger.NewNop(), nil)

	if _, err := f.Respond(ctx, "q", ""); !errors.Is(err, context.Canceled) {
		t.Errorf("Respond() = %v, want context.Canceled", err)
	}
}

func TestResponderPrompt(t *testing.T) {
	t.Parallel()

	p := ResponderPrompt("what are the fees", `[{"tag":"fee_info"}]`)
	if !strings.Contains(p, "what are the fees") {
		t.Error("prompt missing utterance")
	}
	if !strings.Contains(p, "fee_info") {
		t.Error("prompt missing context")
	}

	p = ResponderPrompt("hello", "")
	if strings.Contains(p, "Reference information") {
		t.Error("empty context should omit the reference block")
	}
}
