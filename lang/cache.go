package lang

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"
)

// templateCache stores compiled templates keyed by source hash. Compiled
// templates are immutable, so a cached tree may be shared by any number of
// concurrent renders.
var templateCache sync.Map

// state tracks the one-time compilation of a cached source.
type state struct {
	once     sync.Once
	template *Template
	err      error
}

// ParseReader compiles template source read from r.
//
// The reader is wrapped with asynchronous read-ahead so input is prefetched
// while earlier chunks are consumed. When no options are given the compiled
// result is cached by content hash.
func ParseReader(
	ctx context.Context,
	r io.Reader,
	opts ...Option,
) (*Template, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).
			With(slog.String("source", "reader"))
	}

	cfg := makeConfig(opts...)

	cfg.logger.TraceContext(
		ctx,
		"read input",
		slog.Int("source_bytes", len(data)),
		slog.Bool("read_ahead", true),
	)

	return ParseString(ctx, string(data), opts...)
}

// parseStringCached compiles source under the default configuration,
// sharing the compiled tree across identical sources.
func parseStringCached(ctx context.Context, source string) (*Template, error) {
	sourceHash := xxh3.Hash([]byte(source))
	sourceKey := strconv.FormatUint(sourceHash, 36)

	entry := new(state)
	value, cacheHit := templateCache.LoadOrStore(sourceKey, entry)

	cached, ok := value.(*state)
	if !ok {
		return nil, ErrParse.
			With(slog.String("issue", "invalid entry type in cache"))
	}

	cfg := makeConfig()

	cfg.logger.TraceContext(
		ctx,
		"cache lookup",
		slog.String("source_hash", strconv.FormatUint(sourceHash, 16)),
		slog.Bool("cache_hit", cacheHit),
	)

	cached.once.Do(func() {
		t, err := parseTemplate(ctx, source, cfg)
		if err != nil {
			cached.err = WrapError(err).
				With(slog.Int("source_length", len(source)))

			return
		}

		cached.template = t
	})

	if cached.err != nil {
		return nil, cached.err
	}

	return cached.template, nil
}

// ClearCache removes all cached compiled templates and group definitions.
// This is primarily useful for testing or when memory needs to be
// reclaimed.
func ClearCache() {
	templateCache = sync.Map{}
	definitionCache = sync.Map{}
	definitionRegistry = sync.Map{}
}
