package redact

import (
	"context"
	"fmt"
	"log/slog"
)

// Handler wraps a slog.Handler and redacts PII before records reach it.
//
// The message is passed through the Redactor. Attributes whose key is a
// sensitive field are replaced by the redaction, other string, error and
// fmt.Stringer attributes are filtered like the message.
type Handler struct {
	handler  slog.Handler
	redactor *Redactor
}

// NewHandler creates a new Handler.
func NewHandler(next slog.Handler, r *Redactor) *Handler {
	return &Handler{
		handler:  next,
		redactor: r,
	}
}

// Handle redacts the record and hands it to the wrapped handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.redactor.Filter(r.Message), r.PC)

	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})

	return h.handler.Handle(ctx, out)
}

// Enabled returns true if the level is enabled.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs returns a new handler with the given attributes, redacted.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		redacted = append(redacted, h.redactAttr(a))
	}

	return &Handler{
		handler:  h.handler.WithAttrs(redacted),
		redactor: h.redactor,
	}
}

// WithGroup returns a new handler with the given group.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		handler:  h.handler.WithGroup(name),
		redactor: h.redactor,
	}
}

func (h *Handler) redactAttr(a slog.Attr) slog.Attr {
	// LogValuers decide their own representation, so resolve them first.
	a.Value = a.Value.Resolve()

	if h.redactor.IsSensitive(a.Key) && a.Value.Kind() != slog.KindGroup {
		return slog.String(a.Key, h.redactor.Redaction())
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.redactor.Filter(a.Value.String()))
	case slog.KindGroup:
		group := a.Value.Group()
		redacted := make([]any, 0, len(group))
		for _, ga := range group {
			redacted = append(redacted, h.redactAttr(ga))
		}
		return slog.Group(a.Key, redacted...)
	case slog.KindAny:
		// Errors and Stringers are printed as text, so filter that text.
		switch v := a.Value.Any().(type) {
		case error:
			return slog.String(a.Key, h.redactor.Filter(v.Error()))
		case fmt.Stringer:
			return slog.String(a.Key, h.redactor.Filter(v.String()))
		}
		return a
	default:
		return a
	}
}
