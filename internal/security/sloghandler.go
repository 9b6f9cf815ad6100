package security

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// RedactingHandler wraps a slog.Handler and redacts secrets from the
// message and every attribute. The bot token travels in Bot API URLs, so
// any error from the transport would otherwise print it. Attributes whose
// key names a URL ("url", "download_url") also lose user info and signed
// query parameters.
type RedactingHandler struct {
	inner    slog.Handler
	redactor *Redactor
}

// Compile-time check.
var _ slog.Handler = (*RedactingHandler)(nil)

// NewRedactingHandler creates a handler that wraps inner.
func NewRedactingHandler(inner slog.Handler, redactor *Redactor) *RedactingHandler {
	return &RedactingHandler{
		inner:    inner,
		redactor: redactor,
	}
}

// Enabled delegates to the inner handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle rebuilds the record with a redacted message and attributes.
func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	out := slog.NewRecord(record.Time, record.Level, h.redactor.Redact(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

// WithAttrs redacts attrs once, up front.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RedactingHandler{
		inner:    h.inner.WithAttrs(h.redactAttrs(attrs)),
		redactor: h.redactor,
	}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{
		inner:    h.inner.WithGroup(name),
		redactor: h.redactor,
	}
}

func (h *RedactingHandler) redactAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = h.redactAttr(a)
	}
	return out
}

func (h *RedactingHandler) redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	switch a.Value.Kind() {
	case slog.KindString:
		a.Value = slog.StringValue(h.redactString(a.Key, a.Value.String()))
	case slog.KindGroup:
		a.Value = slog.GroupValue(h.redactAttrs(a.Value.Group())...)
	case slog.KindAny:
		if u, ok := a.Value.Any().(*url.URL); ok && u != nil {
			a.Value = slog.StringValue(h.redactor.RedactURL(u.String()))
			break
		}
		// Errors and other values print through fmt.
		printed := fmt.Sprint(a.Value.Any())
		if redacted := h.redactString(a.Key, printed); redacted != printed {
			a.Value = slog.StringValue(redacted)
		}
	}
	return a
}

func (h *RedactingHandler) redactString(key, s string) string {
	if isURLKey(key) {
		return h.redactor.RedactURL(s)
	}
	return h.redactor.Redact(s)
}

func isURLKey(key string) bool {
	k := strings.ToLower(key)
	return k == "url" || strings.HasSuffix(k, "_url")
}
