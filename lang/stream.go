package lang

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"strconv"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"
)

var (
	// definitionCache stores compiled templates keyed by
	// (source_hash:name). This allows lookup of a single definition
	// without keeping full groups in memory.
	definitionCache sync.Map

	// definitionRegistry tracks group metadata by source hash.
	definitionRegistry sync.Map
)

// streamState tracks the one-time parse and definition list for a group
// source.
type streamState struct {
	once  sync.Once
	names []string
	err   error
}

// Stream provides on-demand access to template definitions in group
// source text. It parses once and caches individual definitions, so two
// streams over identical source share one compilation.
type Stream struct {
	reader    io.Reader
	source    string
	sourceKey string
	metadata  *streamState
}

// NewStream creates a definition stream from an io.Reader.
// The reader is not consumed until first definition access.
func NewStream(r io.Reader) *Stream {
	return &Stream{
		reader:   r,
		metadata: new(streamState),
	}
}

// NewStreamFromString creates a definition stream from group source text.
func NewStreamFromString(source string) *Stream {
	sourceKey := strconv.FormatUint(xxh3.Hash([]byte(source)), 36)

	entry := new(streamState)
	value, _ := definitionRegistry.LoadOrStore(sourceKey, entry)

	metadata, ok := value.(*streamState)
	if !ok {
		metadata = entry
	}

	return &Stream{
		source:    source,
		sourceKey: sourceKey,
		metadata:  metadata,
	}
}

// ensureParsed reads and parses the group source, caching each definition
// individually on first access.
func (s *Stream) ensureParsed(ctx context.Context) error {
	s.metadata.once.Do(func() {
		if s.source == "" && s.reader != nil {
			// Prefetch input while earlier chunks are consumed.
			ra := readahead.NewReader(s.reader)
			defer ra.Close()

			data, err := io.ReadAll(ra)
			if err != nil {
				s.metadata.err = ErrReadInput.Wrap(err).
					With(slog.String("source", "reader"))

				return
			}

			s.source = string(data)
			s.sourceKey = strconv.FormatUint(xxh3.Hash(data), 36)
		}

		group, err := ParseGroup(ctx, s.source)
		if err != nil {
			s.metadata.err = WrapError(err).
				With(slog.Int("source_length", len(s.source)))

			return
		}

		names := group.Names()
		s.metadata.names = names

		for _, name := range names {
			if t, ok := group.Lookup(name); ok {
				definitionCache.Store(s.sourceKey+":"+name, t)
			}
		}
	})

	return s.metadata.err
}

// Lookup retrieves a template definition by name.
// Returns an error if parsing fails or the definition is not found.
func (s *Stream) Lookup(ctx context.Context, name string) (*Template, error) {
	err := s.ensureParsed(ctx)
	if err != nil {
		return nil, err
	}

	if value, ok := definitionCache.Load(s.sourceKey + ":" + name); ok {
		if t, ok := value.(*Template); ok {
			return t, nil
		}
	}

	return nil, ErrTemplateNotFound.
		With(slog.String("name", name))
}

// Templates returns an iterator over the named definitions in the source,
// in definition order. If parsing fails, the iterator yields nothing.
func (s *Stream) Templates(ctx context.Context) iter.Seq2[string, *Template] {
	return func(yield func(string, *Template) bool) {
		err := s.ensureParsed(ctx)
		if err != nil {
			return
		}

		for _, name := range s.metadata.names {
			value, ok := definitionCache.Load(s.sourceKey + ":" + name)
			if !ok {
				continue
			}

			t, ok := value.(*Template)
			if !ok {
				continue
			}

			if !yield(name, t) {
				return
			}
		}
	}
}

// Err returns the parse error observed by an earlier access, if any.
func (s *Stream) Err() error {
	return s.metadata.err
}

// Group reconstructs the complete parsed group from cached definitions.
// Prefer Lookup or Templates when only some definitions are needed.
func (s *Stream) Group(ctx context.Context) (*Group, error) {
	err := s.ensureParsed(ctx)
	if err != nil {
		return nil, err
	}

	group := NewGroup()

	for name, t := range s.Templates(ctx) {
		group.Define(name, t)
	}

	return group, nil
}
