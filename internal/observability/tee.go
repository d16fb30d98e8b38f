package observability

import (
	"context"
	"log/slog"
)

// TeeHandler fans every record out to all wrapped handlers. Enabled checks
// are per-handler, so a verbose OTLP sink can coexist with a quieter
// console one.
type TeeHandler struct {
	handlers []slog.Handler
}

// NewTeeHandler combines handlers into one. Nil entries are dropped.
func NewTeeHandler(handlers ...slog.Handler) *TeeHandler {
	t := &TeeHandler{}
	for _, h := range handlers {
		if h != nil {
			t.handlers = append(t.handlers, h)
		}
	}
	return t
}

// Enabled reports true when any wrapped handler is enabled at level.
func (t *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle dispatches the record to every enabled handler, returning the
// first error.
func (t *TeeHandler) Handle(ctx context.Context, rec slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, rec.Level) {
			continue
		}
		if err := h.Handle(ctx, rec.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WithAttrs applies attrs to every wrapped handler.
func (t *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		out[i] = h.WithAttrs(attrs)
	}
	return &TeeHandler{handlers: out}
}

// WithGroup applies the group to every wrapped handler.
func (t *TeeHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		out[i] = h.WithGroup(name)
	}
	return &TeeHandler{handlers: out}
}
