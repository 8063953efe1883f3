package cli

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/ardnew/mung"
	"github.com/caarlos0/env/v10"

	"github.com/ardnew/weft/pkg"
)

// baseConfig is the base name of the configuration file.
const baseConfig = "config"

// defaultDirMode is the default permission mode for created directories.
var defaultDirMode os.FileMode = 0o700

// basePrefix returns the base prefix string used to construct the path to
// the configuration directory and the prefix for environment variable
// identifiers.
//
// By default, basePrefix is the base name of the executable file unless it
// matches one of the following substitution rules:
//   - "__debug_bin" (default output of the dlv debugger): replaced with
//     the command name
//   - "^\.+" (dot-prefixed names): remove the dot prefix
var basePrefix = sync.OnceValue(
	func() string {
		id := os.Args[0]
		exe, err := os.Executable()
		if err == nil {
			id = exe
		}

		ext := filepath.Ext(filepath.Base(id))
		id = strings.TrimSuffix(filepath.Base(id), ext)

		for rex, rep := range map[*regexp.Regexp]string{
			regexp.MustCompile(`^__debug_bin\d+$`): pkg.Name, // dlv default output
			regexp.MustCompile(`^\.+`):             "",       // remove leading dot(s)
		} {
			id = rex.ReplaceAllString(id, rep)
		}

		return id
	},
)

// configDir returns the configuration directory path.
var configDir = sync.OnceValue(
	func() string {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir, err = os.UserHomeDir()
			if err == nil {
				dir = filepath.Join(dir, ".config")
			} else {
				var err error
				dir, err = os.Getwd()
				if err != nil {
					dir = "."
				}
			}
		}

		return filepath.Join(dir, basePrefix())
	},
)

// cacheDir returns the cache directory path used for transient files.
var cacheDir = sync.OnceValue(
	func() string {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir, err = os.UserHomeDir()
			if err == nil {
				dir = filepath.Join(dir, ".cache")
			} else {
				var err error
				dir, err = os.Getwd()
				if err != nil {
					dir = "."
				}
			}
		}

		return filepath.Join(dir, basePrefix())
	},
)

// configPath returns the absolute path to a file or directory formed by
// joining the global configuration directory path with the given path
// elements.
//
// If no elements are given, it is equivalent to calling [configDir].
func configPath(elem ...string) string {
	return filepath.Join(append([]string{configDir()}, elem...)...)
}

// pathEnv holds environment overrides for template file resolution.
type pathEnv struct {
	// Path is a PATH-like list of directories searched for template and
	// group files before the defaults.
	Path string `env:"WEFT_PATH"`
}

// templateSearchPath returns the ordered list of directories searched for
// template and group files named on the command line: directories from
// WEFT_PATH first, then the working directory, then the user template
// directory under the configuration directory.
var templateSearchPath = sync.OnceValue(
	func() []string {
		var overrides pathEnv

		_ = env.Parse(&overrides)

		cwd, err := os.Getwd()
		if err != nil {
			cwd = "."
		}

		joined := mung.Make(
			mung.WithSubjectItems(cwd, configPath("templates")),
			mung.WithDelim(string(os.PathListSeparator)),
			mung.WithPrefixItems(overrides.Path),
			mung.WithFilter(func(dir string) bool { return dir != "" }),
		).String()

		return strings.Split(joined, string(os.PathListSeparator))
	},
)

// resolveTemplateFile locates name in the template search path. Absolute
// paths and paths that resolve from the working directory are returned
// as-is; otherwise each search directory is tried in order. Returns the
// original name when nothing matches, letting the open fail with a
// meaningful error.
func resolveTemplateFile(name string) string {
	if filepath.IsAbs(name) {
		return name
	}

	for _, dir := range templateSearchPath() {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return name
}

// mkdirAllRequired creates all required runtime directories.
func mkdirAllRequired() error {
	err := os.MkdirAll(configDir(), defaultDirMode)
	if err != nil {
		return err
	}

	return os.MkdirAll(cacheDir(), defaultDirMode)
}
