package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// documentKeys contains attribute keys whose values are whole documents.
// Their content is never useful in a log line, only their size.
var documentKeys = map[string]bool{
	"document": true,
	"doc":      true,
	"body":     true,
	"content":  true,
	"markup":   true,
	"html":     true,
	"xml":      true,
	"raw":      true,
}

// DefaultMaxValueLength is the number of bytes kept from a long string
// attribute.
const DefaultMaxValueLength = 200

// CompactHandler wraps an slog.Handler to keep records short.
// It replaces document attributes with a size summary and truncates long
// string values before passing records to the underlying handler.
//
// Design decision: We use a handler wrapper rather than a custom logger
// so that it works with any underlying handler (text, JSON) and with the
// standard slog APIs.
type CompactHandler struct {
	// handler is the underlying slog handler that receives compacted records.
	handler slog.Handler

	// maxLen is the number of bytes kept from long strings.
	maxLen int
}

// NewCompactHandler creates a new CompactHandler wrapping the given handler.
// If handler is nil, the returned CompactHandler will use slog.Default().Handler().
// A maxLen of zero or less selects DefaultMaxValueLength.
func NewCompactHandler(handler slog.Handler, maxLen int) *CompactHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxValueLength
	}
	return &CompactHandler{handler: handler, maxLen: maxLen}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *CompactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle compacts the record's attributes and passes it to the underlying handler.
func (h *CompactHandler) Handle(ctx context.Context, r slog.Record) error {
	compacted := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		compacted.AddAttrs(h.compactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, compacted)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are compacted before being added.
func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	compacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		compacted[i] = h.compactAttr(a)
	}
	return &CompactHandler{handler: h.handler.WithAttrs(compacted), maxLen: h.maxLen}
}

// WithGroup returns a new handler with the given group name.
func (h *CompactHandler) WithGroup(name string) slog.Handler {
	return &CompactHandler{handler: h.handler.WithGroup(name), maxLen: h.maxLen}
}

// compactAttr compacts a single attribute, recursively handling groups.
func (h *CompactHandler) compactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		compacted := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			compacted[i] = h.compactAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(compacted...)}
	}

	if documentKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, summarize(a.Value))
	}

	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, truncate(a.Value.String(), h.maxLen))
	}
	return a
}

// summarize describes a document value by its size.
func summarize(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return fmt.Sprintf("<%d bytes>", len(v.String()))
	case slog.KindAny:
		if b, ok := v.Any().([]byte); ok {
			return fmt.Sprintf("<%d bytes>", len(b))
		}
	}
	return fmt.Sprintf("<%s>", v.Kind())
}

// truncate cuts s to at most maxLen bytes on a rune boundary and notes how
// much was dropped.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return fmt.Sprintf("%s...(+%d bytes)", s[:cut], len(s)-cut)
}

// NewLogger creates a new slog.Logger with compact handling.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
//   - json: If true, writes JSON lines instead of text
//
// Returns a *slog.Logger that can be used with slog.SetDefault().
func NewLogger(w io.Writer, verbose, json bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(NewCompactHandler(handler, DefaultMaxValueLength))
}
