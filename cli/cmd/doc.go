// Package cmd implements the weft subcommands: render, fmt, repl, and
// init. Each command receives its attribute and group file lists through
// the context assembled by the cli package.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the base
	// path (without extension) of the configuration file.
	ConfigIdentifier = "config"
)
