package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// leadFields are printed right after the message, in this order, so retry
// lines read the same way across components.
var leadFields = []string{FieldAttempt, FieldClassification, FieldWait, FieldStatusCode}

// consoleHandler renders one human-readable line per record:
//
//	2026-01-02T15:04:05Z WARN [a1b2c3d4] openrouter: chat attempt failed; retrying attempt=1/3 classification=server_error wait=2s status_code=503 ...
type consoleHandler struct {
	out       *lockedWriter
	level     slog.Leveler
	source    bool
	attrs     []slog.Attr
	keyPrefix string
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(p)
	return err
}

func newConsoleHandler(w io.Writer, level slog.Leveler, source bool) *consoleHandler {
	return &consoleHandler{out: &lockedWriter{w: w}, level: level, source: source}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make(map[string]string, len(h.attrs)+record.NumAttrs())
	var order []string
	add := func(attr slog.Attr) bool {
		collect(fields, &order, "", attr)
		return true
	}
	for _, attr := range h.attrs {
		add(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		return add(h.scoped(attr))
	})

	when := record.Time
	if when.IsZero() {
		when = time.Now()
	}

	var line strings.Builder
	line.WriteString(when.UTC().Format(time.RFC3339))
	line.WriteByte(' ')
	line.WriteString(levelName(record.Level))
	line.WriteByte(' ')
	if id := take(fields, FieldCorrelationID); id != "" {
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(&line, "[%s] ", id)
	}
	if component := take(fields, FieldComponent); component != "" {
		line.WriteString(component)
		line.WriteString(": ")
	}
	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}
	line.WriteString(message)

	if h.source && record.PC != 0 {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&line, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}

	if maxAttempts := take(fields, "max_attempts"); maxAttempts != "" {
		if attempt, ok := fields[FieldAttempt]; ok {
			fields[FieldAttempt] = attempt + "/" + maxAttempts
		}
	}
	if fields[FieldStatusCode] == "0" {
		delete(fields, FieldStatusCode)
	}
	for _, key := range leadFields {
		if value, ok := fields[key]; ok {
			writeField(&line, key, value)
			delete(fields, key)
		}
	}
	for _, key := range order {
		if value, ok := fields[key]; ok {
			writeField(&line, key, value)
			delete(fields, key)
		}
	}
	line.WriteByte('\n')
	return h.out.write([]byte(line.String()))
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, attr := range attrs {
		next.attrs = append(next.attrs, h.scoped(attr))
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.keyPrefix = h.keyPrefix + name + "."
	return &next
}

func (h *consoleHandler) scoped(attr slog.Attr) slog.Attr {
	if h.keyPrefix != "" && attr.Key != "" {
		attr.Key = h.keyPrefix + attr.Key
	}
	return attr
}

// collect flattens attr into fields; later values for a key replace earlier
// ones but keep the first position.
func collect(fields map[string]string, order *[]string, prefix string, attr slog.Attr) {
	value := attr.Value.Resolve()
	if attr.Key == "" && value.Kind() != slog.KindGroup {
		return
	}
	key := prefix + attr.Key
	if value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			key += "."
		}
		for _, member := range value.Group() {
			collect(fields, order, key, member)
		}
		return
	}
	if _, seen := fields[key]; !seen {
		*order = append(*order, key)
	}
	fields[key] = renderValue(value)
}

func take(fields map[string]string, key string) string {
	value := fields[key]
	delete(fields, key)
	return strings.Trim(value, `"`)
}

func writeField(b *strings.Builder, key, value string) {
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(value)
}

func renderValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if s == "" || strings.ContainsAny(s, " =\"\t\n") {
		return strconv.Quote(s)
	}
	return s
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
