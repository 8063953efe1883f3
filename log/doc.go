// Package log provides a concurrency-safe leveled logging interface based
// on [log/slog], extended with a Trace level for fine-grained diagnostics
// of template compilation and rendering.
//
// # Basic Usage
//
//	logger := log.New(os.Stderr)
//	logger.Info("render complete", slog.Int("bytes", n))
//	logger.Error("parse failed", slog.Any("error", err))
//
// Package-level functions route through a default logger writing to
// standard error, reconfigurable via [Config]:
//
//	log.Config(log.WithLevel(log.LevelTrace), log.WithFormat(log.FormatJSON))
//	log.Trace("cache lookup", slog.Bool("hit", true))
//
// # Zero Value
//
// The zero [Logger] discards every message. Library types hold one by
// value and log unconditionally; output appears only when the caller
// supplies a configured logger.
//
// # Levels and Formats
//
// Five levels are supported: [LevelTrace], [LevelDebug], [LevelInfo],
// [LevelWarn], and [LevelError]. Messages below the configured level are
// discarded. Output is either colorized human-readable text (the default)
// or JSON; disable colors with [WithPretty].
//
// # Context-Aware Logging
//
// Each level has a context-aware variant ([Logger.InfoContext], and so
// on). The context-unaware variants delegate to them using
// [DefaultContextProvider], which returns [context.TODO] by default.
//
// # Time Formatting
//
// Timestamps are formatted per [WithTimeLayout], which accepts any named
// layout from the [time] package (such as "RFC3339") or a custom layout
// string. An empty layout omits timestamps.
package log
