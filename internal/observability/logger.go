// Package observability provides structured logging, request identity,
// tracing, and exporters for the routing engine.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with redaction and request ID support.
type Logger struct {
	*slog.Logger
	redactor *Redactor
}

// LoggerConfig contains configuration for the logger.
type LoggerConfig struct {
	Level     string `yaml:"level" json:"level"`
	Format    string `yaml:"format" json:"format"`
	AddSource bool   `yaml:"add_source" json:"add_source"`
	Output    io.Writer `yaml:"-" json:"-"`
}

// ParseLevel maps a config string onto a slog level. Unknown values
// resolve to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a logger with redaction support. The default output is
// JSON on stderr.
func NewLogger(cfg LoggerConfig, redactor *Redactor) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return &Logger{
		Logger:   slog.New(handler),
		redactor: redactor,
	}
}

// FromSlog wraps an existing slog logger with redaction support. Used when
// the handler stack is assembled externally, e.g. with an OTLP fan-out.
func FromSlog(l *slog.Logger, redactor *Redactor) *Logger {
	return &Logger{Logger: l, redactor: redactor}
}

// Default returns a JSON logger at info level with the default redactor.
func Default() *Logger {
	return NewLogger(LoggerConfig{}, NewRedactor())
}

// WithRequestID returns a logger carrying the request ID from ctx.
func (l *Logger) WithRequestID(ctx context.Context) *Logger {
	id := RequestIDFromContext(ctx)
	if id == "" {
		return l
	}
	return l.WithFields("request_id", id)
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(args ...any) *Logger {
	return &Logger{
		Logger:   l.Logger.With(args...),
		redactor: l.redactor,
	}
}

// RedactedDebug logs at DEBUG level with sensitive data masked.
func (l *Logger) RedactedDebug(msg string, args ...any) {
	l.redacted(slog.LevelDebug, msg, args)
}

// RedactedInfo logs at INFO level with sensitive data masked.
func (l *Logger) RedactedInfo(msg string, args ...any) {
	l.redacted(slog.LevelInfo, msg, args)
}

// RedactedWarn logs at WARN level with sensitive data masked.
func (l *Logger) RedactedWarn(msg string, args ...any) {
	l.redacted(slog.LevelWarn, msg, args)
}

// RedactedError logs at ERROR level with sensitive data masked.
func (l *Logger) RedactedError(msg string, args ...any) {
	l.redacted(slog.LevelError, msg, args)
}

func (l *Logger) redacted(level slog.Level, msg string, args []any) {
	if l.redactor != nil {
		msg = l.redactor.Redact(msg)
		args = l.redactArgs(args)
	}
	l.Logger.Log(context.Background(), level, msg, args...)
}

func (l *Logger) redactArgs(args []any) []any {
	result := make([]any, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case string:
			result[i] = l.redactor.Redact(v)
		case error:
			result[i] = l.redactor.Redact(v.Error())
		default:
			result[i] = arg
		}
	}
	return result
}

// Slog returns the underlying slog.Logger for libraries that want one.
func (l *Logger) Slog() *slog.Logger {
	return l.Logger
}
