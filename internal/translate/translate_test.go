package translate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domerrors "github.com/campusbot/campus-chatbot-go/internal/errors"
	"github.com/campusbot/campus-chatbot-go/internal/logger"
)

func TestTranslateSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("tl"); got != "en" {
			t.Errorf("tl = %q, want en", got)
		}
		if got := r.URL.Query().Get("sl"); got != "auto" {
			t.Errorf("sl = %q, want auto", got)
		}
		w.Write([]byte(`[[["What is the fee?","கட்டணம் என்ன?",null,null,10]],null,"ta",null,null,null,null,[]]`))
	}))
	defer srv.Close()

	tr := New(logger.NewNop(), nil, WithBaseURL(srv.URL))
	result, err := tr.Translate(context.Background(), "கட்டணம் என்ன?", "en")
	if err != nil {
		t.Fatalf("Translate() error: %v", err)
	}
	if result.Text != "What is the fee?" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.DetectedLang != "ta" {
		t.Errorf("DetectedLang = %q, want ta", result.DetectedLang)
	}
}

func TestTranslateJoinsSegments(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[[["Hello. ","வணக்கம். ",null,null,1],["How are you?","எப்படி இருக்கிறீர்கள்?",null,null,1]],null,"ta"]`))
	}))
	defer srv.Close()

	tr := New(logger.NewNop(), nil, WithBaseURL(srv.URL))
	result, err := tr.Translate(context.Background(), "வணக்கம். எப்படி இருக்கிறீர்கள்?", "en")
	if err != nil {
		t.Fatalf("Translate() error: %v", err)
	}
	if result.Text != "Hello. How are you?" {
		t.Errorf("Text = %q", result.Text)
	}
}

func TestTranslateFailureReturnsOriginal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"garbage body", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("<html>blocked</html>"))
		}},
		{"empty payload", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("[]"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			tr := New(logger.NewNop(), nil, WithBaseURL(srv.URL))
			result, err := tr.Translate(context.Background(), "original text", "en")
			if !errors.Is(err, domerrors.ErrCollaboratorUnavailable) {
				t.Errorf("error %v does not match ErrCollaboratorUnavailable", err)
			}
			// Degradation contract: original text, never empty.
			if result.Text != "original text" {
				t.Errorf("Text = %q, want original", result.Text)
			}
			// A failed call detected nothing; claiming the target as the
			// source would flip the caller's stored session language.
			if result.DetectedLang != "" {
				t.Errorf("DetectedLang = %q on failure, want empty", result.DetectedLang)
			}
		})
	}
}

func TestTranslateUnreachableService(t *testing.T) {
	t.Parallel()

	tr := New(logger.NewNop(), nil,
		WithBaseURL("http://127.0.0.1:1"),
		WithTimeout(200*time.Millisecond))
	result, err := tr.Translate(context.Background(), "still here", "en")
	if err == nil {
		t.Error("expected error for unreachable service")
	}
	if result.Text != "still here" {
		t.Errorf("Text = %q, want original", result.Text)
	}
}

func TestTranslateEmptyAndInvalidInput(t *testing.T) {
	t.Parallel()

	tr := New(logger.NewNop(), nil, WithBaseURL("http://127.0.0.1:1"))

	result, err := tr.Translate(context.Background(), "  ", "en")
	if err != nil {
		t.Errorf("blank text should not error: %v", err)
	}
	if result.Text != "  " {
		t.Errorf("blank text changed: %q", result.Text)
	}

	result, err = tr.Translate(context.Background(), "hello", "not a lang!")
	if err == nil {
		t.Error("expected error for invalid language tag")
	}
	if result.Text != "hello" {
		t.Errorf("Text = %q, want original", result.Text)
	}
}

func TestValidLang(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"en", "ta", "hi", "zh-TW"} {
		if !ValidLang(code) {
			t.Errorf("ValidLang(%q) = false", code)
		}
	}
	for _, code := range []string{"", "not a lang!", "123456789"} {
		if ValidLang(code) {
			t.Errorf("ValidLang(%q) = true", code)
		}
	}
}
