package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithOptionsJSONOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithOptions(Options{Level: "info", Writer: &buf})
	log.WithModule("dialog").WithField("turn", 3).Info("turn resolved")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["message"] != "turn resolved" {
		t.Errorf("message = %v, want %q", entry["message"], "turn resolved")
	}
	if entry["module"] != "dialog" {
		t.Errorf("module = %v, want dialog", entry["module"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("timestamp field missing")
	}
}

func TestWarnLevelRenamed(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithOptions(Options{Level: "debug", Writer: &buf})
	log.Warn("collaborator degraded")

	if !strings.Contains(buf.String(), `"level":"warning"`) {
		t.Errorf("warn level not renamed to warning: %s", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithOptions(Options{Level: "error", Writer: &buf})
	log.Info("should be dropped")
	log.Debug("also dropped")

	if buf.Len() != 0 {
		t.Errorf("expected no output below error level, got %s", buf.String())
	}
}

func TestMultiHandlerFanOut(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewJSONHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
		nil, // nil handlers must be tolerated
	)
	log := slog.New(h)
	log.Info("fan out")

	for name, buf := range map[string]*bytes.Buffer{"a": &a, "b": &b} {
		if !strings.Contains(buf.String(), "fan out") {
			t.Errorf("handler %s did not receive record: %s", name, buf.String())
		}
	}
}

func TestMultiHandlerEnabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	errOnly := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError})
	h := NewMultiHandler(errOnly)

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should not be enabled when only handler requires error")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error level should be enabled")
	}
}
