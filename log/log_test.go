package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"testing"
)

func TestZeroLoggerDiscards(t *testing.T) {
	var logger Logger

	// Must not panic; the zero value is a no-op sink.
	logger.Trace("trace")
	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")
	logger.TraceContext(t.Context(), "trace")
	logger.ErrorContext(t.Context(), "error", slog.String("k", "v"))

	if logger.Level() != DefaultLevel {
		t.Errorf("zero logger level: got %v", logger.Level())
	}

	if got := logger.With(slog.String("k", "v")); got.Logger != nil {
		t.Error("With on zero logger should remain zero")
	}
}

func TestNew_WritesAtLevel(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&buf, WithPretty(false), WithLevel(LevelDebug))

	logger.Debug("visible", slog.String("key", "val"))
	logger.Trace("hidden")

	out := buf.String()

	if !strings.Contains(out, "visible") || !strings.Contains(out, "key=val") {
		t.Errorf("missing debug record in %q", out)
	}

	if strings.Contains(out, "hidden") {
		t.Errorf("trace should be filtered at debug level: %q", out)
	}
}

func TestNew_TraceLevel(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&buf, WithPretty(false), WithLevel(LevelTrace))

	logger.TraceContext(t.Context(), "deep detail")

	out := buf.String()

	if !strings.Contains(out, "deep detail") {
		t.Errorf("trace record not written: %q", out)
	}

	// The synthetic level renders by name, not as a Debug offset.
	if !strings.Contains(out, "TRACE") || strings.Contains(out, "DEBUG-4") {
		t.Errorf("trace level not renamed: %q", out)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&buf, WithPretty(false), WithFormat(FormatJSON))

	logger.Info("structured", slog.Int("count", 3))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v: %q", err, buf.String())
	}

	if record["msg"] != "structured" {
		t.Errorf("unexpected msg %v", record["msg"])
	}

	if count, ok := record["count"].(float64); !ok || count != 3 {
		t.Errorf("unexpected count %v", record["count"])
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&buf, WithPretty(false)).
		With(slog.String("component", "mapper"))

	logger.Info("bound")

	if !strings.Contains(buf.String(), "component=mapper") {
		t.Errorf("bound attribute missing: %q", buf.String())
	}
}

func TestLogger_Wrap(t *testing.T) {
	var buf bytes.Buffer

	base := New(&buf, WithPretty(false), WithLevel(LevelError))

	wrapped := base.Wrap(WithLevel(LevelInfo))

	if wrapped.Level() != LevelInfo {
		t.Errorf("wrap level: got %v", wrapped.Level())
	}

	// The base keeps its own configuration.
	if base.Level() != LevelError {
		t.Errorf("base level changed: got %v", base.Level())
	}

	wrapped.Info("promoted")

	if !strings.Contains(buf.String(), "promoted") {
		t.Errorf("wrapped logger lost output writer: %q", buf.String())
	}
}

func TestLogger_WrapZero(t *testing.T) {
	var logger Logger

	wrapped := logger.Wrap(WithLevel(LevelTrace))

	// Wrapping the zero value configures a discard writer; logging must
	// still be safe.
	wrapped.Trace("nowhere")

	if wrapped.Level() != LevelTrace {
		t.Errorf("wrap of zero logger: got level %v", wrapped.Level())
	}
}

func TestPrettyText_ContainsRecord(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&buf, WithLevel(LevelInfo))

	logger.Info("shiny", slog.String("k", "v"))

	out := buf.String()

	if !strings.Contains(out, "shiny") || !strings.Contains(out, "info") {
		t.Errorf("pretty output missing record: %q", out)
	}

	if !strings.Contains(out, colorCyan) {
		t.Errorf("pretty output should colorize values: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	for input, want := range map[string]Level{
		"trace":   LevelTrace,
		"TRACE":   LevelTrace,
		" trace ": LevelTrace,
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"WARN":    LevelWarn,
		"error":   LevelError,
		"bogus":   DefaultLevel,
		"":        DefaultLevel,
	} {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", input, want, got)
		}
	}
}

func TestLevelString(t *testing.T) {
	for level, want := range map[Level]string{
		LevelTrace: "trace",
		LevelDebug: "debug",
		LevelInfo:  "info",
		LevelWarn:  "warn",
		LevelError: "error",
	} {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String(): expected %q, got %q", level, want, got)
		}
	}
}

func TestLevels(t *testing.T) {
	got := slices.Collect(Levels())
	want := []string{"trace", "debug", "info", "warn", "error"}

	if !slices.Equal(got, want) {
		t.Errorf("Levels(): expected %v, got %v", want, got)
	}
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{
		"text":  FormatText,
		"json":  FormatJSON,
		"JSON":  FormatJSON,
		"bogus": DefaultFormat,
		"":      DefaultFormat,
	} {
		if got := ParseFormat(input); got != want {
			t.Errorf("ParseFormat(%q): expected %v, got %v", input, want, got)
		}
	}
}

func TestFormats(t *testing.T) {
	got := slices.Collect(Formats())

	if !slices.Equal(got, []string{"text", "json"}) {
		t.Errorf("Formats(): got %v", got)
	}
}

func TestDefaultLogger(t *testing.T) {
	if Default().Logger == nil {
		t.Error("package default logger should be configured")
	}
}
