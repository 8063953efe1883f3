package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/log"
)

// contextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given
// kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

type (
	attrFilesKey  struct{}
	groupFilesKey struct{}
	resolverKey   struct{}
)

// WithAttrFiles returns a new context.Context carrying the attribute file
// paths given on the command line.
func WithAttrFiles(ctx context.Context, paths []string) context.Context {
	return context.WithValue(ctx, attrFilesKey{}, paths)
}

func attrFilesFrom(ctx context.Context) []string {
	paths, _ := ctx.Value(attrFilesKey{}).([]string)

	return paths
}

// WithGroupFiles returns a new context.Context carrying the template group
// file paths given on the command line.
func WithGroupFiles(ctx context.Context, paths []string) context.Context {
	return context.WithValue(ctx, groupFilesKey{}, paths)
}

func groupFilesFrom(ctx context.Context) []string {
	paths, _ := ctx.Value(groupFilesKey{}).([]string)

	return paths
}

// WithFileResolver returns a new context.Context carrying the function that
// locates template and group files through the configured search path.
func WithFileResolver(
	ctx context.Context,
	resolve func(string) string,
) context.Context {
	return context.WithValue(ctx, resolverKey{}, resolve)
}

func fileResolverFrom(ctx context.Context) func(string) string {
	resolve, ok := ctx.Value(resolverKey{}).(func(string) string)
	if !ok {
		return func(name string) string { return name }
	}

	return resolve
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// openInput opens a named input file, mapping [stdinSource] to standard
// input. The caller owns the returned closer; closing stdin is a no-op.
func openInput(name string) (io.ReadCloser, error) {
	if name == stdinSource {
		return io.NopCloser(os.Stdin), nil
	}

	file, err := os.Open(name)
	if err != nil {
		return nil, ErrReadSource.Wrap(err)
	}

	return file, nil
}

// fileKey uniquely identifies a file by its device and inode numbers,
// handling deduplication across symlinks and absolute/relative spellings
// of the same path.
type fileKey struct {
	dev uint64
	ino uint64
}

// makeFileKey creates a fileKey from os.FileInfo. Returns false if the
// underlying Sys() data is not of type *syscall.Stat_t.
func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: stat.Dev, ino: stat.Ino}, true
}

// uniqueInputs filters paths down to distinct files, comparing resolved
// device/inode pairs so the same file named two ways loads once. All
// occurrences of [stdinSource] collapse to a single trailing entry.
func uniqueInputs(paths []string) []string {
	seen := make(map[fileKey]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	stdin := false

	for _, path := range paths {
		if path == stdinSource {
			stdin = true

			continue
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			// Keep unresolvable paths so the open reports the error.
			out = append(out, path)

			continue
		}

		info, err := os.Stat(resolved)
		if err != nil {
			out = append(out, path)

			continue
		}

		key, ok := makeFileKey(info)
		if ok {
			if _, dup := seen[key]; dup {
				continue
			}

			seen[key] = struct{}{}
		}

		out = append(out, resolved)
	}

	if stdin {
		out = append(out, stdinSource)
	}

	return out
}

// loadScope builds the attribute scope from every attribute file named on
// the command line, merged in order. No attribute files yields an empty
// scope.
func loadScope(ctx context.Context) (*lang.Scope, error) {
	scope := lang.NewScope()

	for _, path := range uniqueInputs(attrFilesFrom(ctx)) {
		r, err := openInput(path)
		if err != nil {
			return nil, ErrLoadAttrs.Wrap(err)
		}

		data, err := io.ReadAll(r)

		_ = r.Close()

		if err != nil {
			return nil, ErrLoadAttrs.Wrap(err)
		}

		err = scope.LoadYAML(ctx, data)
		if err != nil {
			return nil, ErrLoadAttrs.Wrap(err)
		}
	}

	return scope, nil
}

// loadGroup builds the template group from every group file named on the
// command line. Later definitions replace earlier ones of the same name.
// No group files yields an empty group.
func loadGroup(ctx context.Context) (*lang.Group, error) {
	resolve := fileResolverFrom(ctx)
	group := lang.NewGroup()

	for _, path := range groupFilesFrom(ctx) {
		r, err := openInput(resolve(path))
		if err != nil {
			return nil, ErrLoadGroup.Wrap(err)
		}

		stream := lang.NewStream(r)

		for name, t := range stream.Templates(ctx) {
			group.Define(name, t)
		}

		_ = r.Close()

		if err := stream.Err(); err != nil {
			return nil, ErrLoadGroup.Wrap(err).
				With(slog.String("source", path))
		}

		log.TraceContext(
			ctx, "group loaded", slog.String("source", path),
		)
	}

	return group, nil
}
