package lang

// This file defines the built-in evaluation environment available to all
// conditional expressions. The environment is lazily initialized once per
// process and cloned on every access, so attribute bindings may shadow any
// built-in name.

import (
	"maps"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/ardnew/mung"
)

//nolint:gochecknoglobals
var (
	envCacheOnce sync.Once
	envCache     map[string]any
)

// makeEnvCache returns a clone of the lazily-initialized, process-scoped
// environment containing built-in variables and functions. The returned map
// can be safely mutated by the caller without affecting the shared cache.
func makeEnvCache() map[string]any {
	envCacheOnce.Do(func() {
		envCache = map[string]any{
			// Host information.
			"hostname": getHostname(),
			"platform": getPlatform(),
			"username": getUsername(),

			// Working directory.
			"cwd": getCwd,

			// Process environment lookup.
			"env": envFunc(buildProcessEnvMap(nil)),

			// Filesystem predicates.
			"file": map[string]any{
				"exists": fileExists,
				"isDir":  fileIsDir,
			},

			// Path manipulation.
			"path": map[string]any{
				"abs": pathAbs,
				"cat": pathCat,
				"rel": pathRel,
			},

			// PATH-like string manipulation via mung.
			"mung": map[string]any{
				"prefix": mungPrefix,
			},
		}
	})

	return maps.Clone(envCache)
}

// EnvNames returns the top-level names of the built-in condition
// environment.
func EnvNames() []string {
	env := makeEnvCache()
	names := make([]string, 0, len(env))

	for name := range env {
		names = append(names, name)
	}

	return names
}

// target contains string identifiers for an operating system and
// instruction set architecture.
type target struct {
	OS   string
	Arch string
}

func getPlatform() target {
	var (
		o, a string
		ok   bool
	)

	if o, ok = os.LookupEnv("GOHOSTOS"); !ok {
		if o, ok = os.LookupEnv("GOOS"); !ok {
			o = runtime.GOOS
		}
	}

	if a, ok = os.LookupEnv("GOHOSTARCH"); !ok {
		if a, ok = os.LookupEnv("GOARCH"); !ok {
			a = runtime.GOARCH
		}
	}

	return target{OS: o, Arch: a}
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return ""
	}

	return hostname
}

func getUsername() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}

	return u.Username
}

func getCwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return pathAbs(".")
	}

	return cwd
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}

func fileIsDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.IsDir()
}

func pathAbs(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return p
}

func pathCat(elem ...string) string {
	return filepath.Join(elem...)
}

func pathRel(from, to string) string {
	p, err := filepath.Rel(pathAbs(from), pathAbs(to))
	if err != nil {
		return pathCat(from, to)
	}

	return p
}

func mungPrefix(key string, prefix ...string) string {
	return mung.Make(
		mung.WithSubjectItems(key),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
	).String()
}

// buildProcessEnvMap converts a "KEY=VALUE" string slice to a map.
// If envList is nil, os.Environ() is used.
func buildProcessEnvMap(envList []string, keyVal ...string) map[string]string {
	envList = append(envList, keyVal...)
	if len(envList) == 0 {
		envList = os.Environ()
	}

	result := make(map[string]string, len(envList))

	for _, entry := range envList {
		key, value, ok := strings.Cut(entry, "=")
		if ok {
			result[key] = value
		}
	}

	return result
}

// envFunc returns the built-in env() function that provides process
// environment access to condition programs.
func envFunc(processEnv map[string]string) func(string) string {
	return func(key string) string {
		return processEnv[key]
	}
}
