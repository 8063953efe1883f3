// Package cli contains the command line interface for weft.
//
// # Usage
//
// The default command renders template files against YAML attribute
// bindings:
//
//	weft -a attrs.yaml page.wt
//	weft -a attrs.yaml -g macros.wtg page.wt
//	echo '<names; separator=", ">' | weft -a attrs.yaml -
//
// The fmt command reprints templates and groups in canonical syntax, the
// repl command opens an interactive rendering shell, and the init command
// writes a configuration file seeded from the current flag values.
//
// # Template Resolution
//
// Template and group files named with relative paths are located through a
// search path: directories listed in the WEFT_PATH environment variable
// (PATH-like, colon-separated) first, then the working directory, then the
// templates directory under the user configuration directory.
//
// # Configuration
//
// Flag defaults may be stored in the user configuration directory as
// config.json or config.yaml, keyed by flag name. Command-line flags
// override configured values.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, StampMilli, ...)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu,
//     goroutine, heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory
package cli
