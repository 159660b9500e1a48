package voice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	domerrors "github.com/campusbot/campus-chatbot-go/internal/errors"
	"github.com/campusbot/campus-chatbot-go/internal/logger"
)

func newTestSynthesizer(t *testing.T, handler http.HandlerFunc) (*GoogleSynthesizer, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	s, err := New(dir, logger.NewNop(), nil, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s, dir
}

func TestSynthesizeWritesFile(t *testing.T) {
	t.Parallel()

	s, dir := newTestSynthesizer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("tl"); got != "ta" {
			t.Errorf("tl = %q, want ta", got)
		}
		if got := r.URL.Query().Get("q"); got != "hello" {
			t.Errorf("q = %q, want hello", got)
		}
		w.Write([]byte("fake-mp3-bytes"))
	})

	name, err := s.Synthesize(context.Background(), "hello", "ta")
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if !strings.HasSuffix(name, ".mp3") {
		t.Errorf("file name %q missing .mp3 suffix", name)
	}
	if strings.Contains(name, string(os.PathSeparator)) {
		t.Errorf("file name %q contains a path separator", name)
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read synthesized file: %v", err)
	}
	if string(data) != "fake-mp3-bytes" {
		t.Errorf("file content = %q", data)
	}
}

func TestSynthesizeUniqueNames(t *testing.T) {
	t.Parallel()

	s, _ := newTestSynthesizer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("x"))
	})

	a, err := s.Synthesize(context.Background(), "same text", "en")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Synthesize(context.Background(), "same text", "en")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Errorf("two syntheses produced the same file name %q", a)
	}
}

func TestSynthesizeServiceError(t *testing.T) {
	t.Parallel()

	s, dir := newTestSynthesizer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := s.Synthesize(context.Background(), "hello", "en")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domerrors.ErrCollaboratorUnavailable) {
		t.Errorf("error %v does not match ErrCollaboratorUnavailable", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("failed synthesis left %d files behind", len(entries))
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	t.Parallel()

	s, _ := newTestSynthesizer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("x"))
	})
	if _, err := s.Synthesize(context.Background(), "   ", "en"); err == nil {
		t.Error("expected error for blank text")
	}
}

func TestCleanOlderThan(t *testing.T) {
	t.Parallel()

	s, dir := newTestSynthesizer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("x"))
	})

	old := filepath.Join(dir, "old.mp3")
	if err := os.WriteFile(old, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	stale := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatal(err)
	}

	fresh := filepath.Join(dir, "fresh.mp3")
	if err := os.WriteFile(fresh, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(dir, "keep.txt")
	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	removed, err := s.CleanOlderThan(time.Hour)
	if err != nil {
		t.Fatalf("CleanOlderThan() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("stale file still present")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh file was removed")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("non-mp3 file was removed")
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 60) // 300 chars
	got := truncate(long, maxUtteranceLen)
	if len([]rune(got)) > maxUtteranceLen {
		t.Errorf("truncate left %d runes", len([]rune(got)))
	}
	if got := truncate("short", 200); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
}
