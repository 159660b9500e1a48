// Package logger provides structured logging for the chatbot.
// It wraps log/slog with JSON formatting and optional Better Stack shipping.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogbetterstack "github.com/samber/slog-betterstack"
)

// Logger is the application logger
type Logger struct {
	*slog.Logger
}

// Options controls logger construction.
type Options struct {
	// Level is one of debug, info, warn, error (default info).
	Level string

	// BetterStackToken enables log shipping to Better Stack when non-empty.
	BetterStackToken string

	// Writer overrides the local output destination (default os.Stdout).
	Writer io.Writer
}

// New creates a JSON logger writing to stdout.
func New(level string) *Logger {
	return NewWithOptions(Options{Level: level})
}

// NewWithOptions creates a logger from the given options.
// When a Better Stack token is set, records fan out to both the local
// JSON handler and the Better Stack handler.
func NewWithOptions(opts Options) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	level := parseLevel(opts.Level)

	local := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: normalizeAttrs,
	})

	var handler slog.Handler = local
	if opts.BetterStackToken != "" {
		remote := slogbetterstack.Option{
			Token: opts.BetterStackToken,
			Level: level,
		}.NewBetterstackHandler()
		handler = NewMultiHandler(local, remote)
	}

	return &Logger{Logger: slog.New(handler)}
}

// NewNop creates a logger that discards everything. For tests.
func NewNop() *Logger {
	return NewWithOptions(Options{Level: "error", Writer: io.Discard})
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// normalizeAttrs renames the built-in keys to the field names used across
// the deployment's log pipeline.
func normalizeAttrs(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.LevelKey:
		a.Key = "level"
		level := a.Value.String()
		if level == "WARN" {
			level = "warning"
		} else {
			level = strings.ToLower(level)
		}
		a.Value = slog.StringValue(level)
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// WithModule creates a new entry with module field
func (l *Logger) WithModule(module string) *Logger {
	return &Logger{Logger: l.With("module", module)}
}

// WithSession creates a new entry with session ID field
func (l *Logger) WithSession(sessionID string) *Logger {
	return &Logger{Logger: l.With("session_id", sessionID)}
}

// WithError creates a new entry with error field
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With("error", err)}
}

// WithField creates a new entry with a single field
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{Logger: l.With(key, value)}
}

// WithFields creates a new entry with multiple fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.With(args...)}
}
