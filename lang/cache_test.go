package lang

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestParseString_CachesDefaultConfig(t *testing.T) {
	ClearCache()

	first, err := ParseString(t.Context(), `<name> ok`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	second, err := ParseString(t.Context(), `<name> ok`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if first != second {
		t.Error("identical sources should share one compiled template")
	}
}

func TestParseString_OptionsBypassCache(t *testing.T) {
	ClearCache()

	first, err := ParseString(t.Context(), `<name>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	second, err := ParseString(t.Context(), `<name>`, WithMaxDepth(5))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if first == second {
		t.Error("configured parse should not reuse the cached template")
	}
}

func TestParseString_CachesError(t *testing.T) {
	ClearCache()

	_, first := ParseString(t.Context(), `<unclosed`)
	if !errors.Is(first, ErrUnclosedExpr) {
		t.Fatalf("expected ErrUnclosedExpr, got %v", first)
	}

	_, second := ParseString(t.Context(), `<unclosed`)
	if !errors.Is(second, ErrUnclosedExpr) {
		t.Errorf("cached failure should repeat, got %v", second)
	}
}

func TestClearCache(t *testing.T) {
	ClearCache()

	first, err := ParseString(t.Context(), `<name>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	ClearCache()

	second, err := ParseString(t.Context(), `<name>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if first == second {
		t.Error("cleared cache should compile a fresh template")
	}
}

func TestParseString_ConcurrentSharesOne(t *testing.T) {
	ClearCache()

	const workers = 8

	results := make([]*Template, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			tmpl, err := ParseString(t.Context(), `<a><b><c>`)
			if err != nil {
				t.Errorf("parse: %v", err)

				return
			}

			results[i] = tmpl
		}()
	}

	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("worker %d compiled a distinct template", i)
		}
	}
}

func TestParseReader_Caches(t *testing.T) {
	ClearCache()

	fromReader, err := ParseReader(
		t.Context(), strings.NewReader(`<name>`),
	)
	if err != nil {
		t.Fatalf("parse reader: %v", err)
	}

	fromString, err := ParseString(t.Context(), `<name>`)
	if err != nil {
		t.Fatalf("parse string: %v", err)
	}

	if fromReader != fromString {
		t.Error("reader and string parses of one source should share cache")
	}
}
