package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
)

// ANSI color codes for pretty printing.
const (
	colorReset   = "\033[0m"
	colorGray    = "\033[90m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
)

// prettyHandler is a colorized slog.Handler rendering either key=value
// lines or indented JSON-like objects.
type prettyHandler struct {
	opts  slog.HandlerOptions
	mu    *sync.Mutex
	w     io.Writer
	attrs []slog.Attr
	json  bool
}

func newPrettyTextHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
) *prettyHandler {
	return &prettyHandler{
		opts: *opts,
		mu:   &sync.Mutex{},
		w:    w,
	}
}

func newPrettyJSONHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
) *prettyHandler {
	return &prettyHandler{
		opts: *opts,
		mu:   &sync.Mutex{},
		w:    w,
		json: true,
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)

	return &clone
}

func (h *prettyHandler) WithGroup(string) slog.Handler {
	// Groups flatten; pretty output is for human eyes, not machines.
	return h
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)

	if h.json {
		h.renderJSON(buf, r)
	} else {
		h.renderText(buf, r)
	}

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

// each yields the record's fields in display order: time, level, source,
// message, bound attributes, then record attributes.
func (h *prettyHandler) each(r slog.Record, yield func(slog.Attr)) {
	if !r.Time.IsZero() {
		yield(slog.Time(slog.TimeKey, r.Time))
	}

	yield(slog.Any(slog.LevelKey, r.Level))

	if h.opts.AddSource {
		if src := r.Source(); src != nil {
			yield(slog.String(
				slog.SourceKey,
				fmt.Sprintf("%s:%d", src.File, src.Line),
			))
		}
	}

	yield(slog.String(slog.MessageKey, r.Message))

	for _, a := range h.attrs {
		yield(a)
	}

	r.Attrs(func(a slog.Attr) bool {
		yield(a)

		return true
	})
}

func (h *prettyHandler) renderText(buf *bytes.Buffer, r slog.Record) {
	h.each(r, func(a slog.Attr) {
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}

		buf.WriteString(colorGray)
		buf.WriteString(a.Key)
		buf.WriteString(colorReset)
		buf.WriteByte('=')
		writeValue(buf, a.Value)
	})
}

func (h *prettyHandler) renderJSON(buf *bytes.Buffer, r slog.Record) {
	buf.WriteString("{\n")

	first := true

	h.each(r, func(a slog.Attr) {
		if !first {
			buf.WriteString(",\n")
		}

		first = false

		buf.WriteString("  ")
		buf.WriteString(colorGray)
		buf.WriteString(a.Key)
		buf.WriteString(colorReset)
		buf.WriteString(": ")
		writeValue(buf, a.Value)
	})

	buf.WriteString("\n}")
}

// writeValue colorizes a value by kind: strings cyan, numbers yellow,
// booleans green/red, durations magenta, times blue, levels by severity.
func writeValue(buf *bytes.Buffer, v slog.Value) {
	v = v.Resolve()

	switch v.Kind() {
	case slog.KindString:
		colorize(buf, colorCyan, v.String())

	case slog.KindInt64:
		colorize(buf, colorYellow, strconv.FormatInt(v.Int64(), 10))

	case slog.KindUint64:
		colorize(buf, colorYellow, strconv.FormatUint(v.Uint64(), 10))

	case slog.KindFloat64:
		colorize(
			buf,
			colorYellow,
			strconv.FormatFloat(v.Float64(), 'g', -1, 64),
		)

	case slog.KindBool:
		if v.Bool() {
			colorize(buf, colorGreen, "true")
		} else {
			colorize(buf, colorRed, "false")
		}

	case slog.KindDuration:
		colorize(buf, colorMagenta, v.Duration().String())

	case slog.KindTime:
		colorize(buf, colorBlue, v.Time().String())

	case slog.KindGroup:
		for i, a := range v.Group() {
			if i > 0 {
				buf.WriteByte(' ')
			}

			buf.WriteString(colorGray)
			buf.WriteString(a.Key)
			buf.WriteString(colorReset)
			buf.WriteByte('=')
			writeValue(buf, a.Value)
		}

	case slog.KindAny:
		if level, ok := v.Any().(slog.Level); ok {
			colorize(buf, levelColor(level), Level(level).String())

			return
		}

		colorize(buf, colorCyan, v.String())

	default:
		colorize(buf, colorCyan, v.String())
	}
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorGreen
	default:
		return colorBlue
	}
}

func colorize(buf *bytes.Buffer, color, text string) {
	buf.WriteString(color)
	buf.WriteString(text)
	buf.WriteString(colorReset)
}
