package repl

import (
	"slices"
	"testing"

	"github.com/charmbracelet/bubbles/textinput"
)

func TestWordBounds(t *testing.T) {
	for _, tc := range []struct {
		input  string
		cursor int
		word   string
		start  int
		end    int
	}{
		{"", 0, "", 0, 0},
		{"names", 5, "names", 0, 5},
		{"names", 2, "names", 0, 5},
		{"<names>", 4, "names", 1, 6},
		{"<names; separator=\", \">", 4, "names", 1, 6},
		{"<first(na", 9, "na", 7, 9},
		{"a b c", 3, "b", 2, 3},
		{"<a>:<b>", 4, "", 4, 4},
		{"log_level", 9, "log_level", 0, 9},
		{"two-part", 8, "two-part", 0, 8},
		{"<x.y>", 2, "x", 1, 2},
	} {
		word, start, end := wordBounds(tc.input, tc.cursor)
		if word != tc.word || start != tc.start || end != tc.end {
			t.Errorf(
				"wordBounds(%q, %d): expected (%q, %d, %d), got (%q, %d, %d)",
				tc.input, tc.cursor,
				tc.word, tc.start, tc.end,
				word, start, end,
			)
		}
	}
}

func TestWordBounds_CursorBeyondInput(t *testing.T) {
	word, start, end := wordBounds("ab", 10)
	if word != "ab" || start != 0 || end != 2 {
		t.Errorf("expected clamped bounds, got (%q, %d, %d)", word, start, end)
	}
}

func TestCompleter_Refresh(t *testing.T) {
	var c completer

	candidates := []string{"names", "phones", "title"}

	c.refresh("<na", 3, candidates)

	if len(c.matches) == 0 || c.matches[0].Str != "names" {
		t.Fatalf("expected names to match, got %v", c.matches)
	}

	if c.index != -1 {
		t.Errorf("refresh should clear selection, got %d", c.index)
	}
}

func TestCompleter_RefreshOnBoundary(t *testing.T) {
	var c completer

	c.refresh("<na", 3, []string{"names"})

	if len(c.matches) == 0 {
		t.Fatal("expected a match")
	}

	c.refresh("<names>", 7, []string{"names"})

	if len(c.matches) != 0 {
		t.Errorf("cursor on boundary should clear matches, got %v", c.matches)
	}
}

func TestCompleter_Cycle(t *testing.T) {
	candidates := []string{"names", "phones"}

	ti := textinput.New()
	ti.SetValue("<na")
	ti.SetCursor(3)

	var c completer
	c.reset()

	c.cycle(&ti, candidates, 1)

	if got := ti.Value(); got != "<names" {
		t.Fatalf("expected completion to names, got %q", got)
	}

	if ti.Position() != len("<names") {
		t.Errorf("cursor should follow completion, got %d", ti.Position())
	}
}

func TestCompleter_CycleWraps(t *testing.T) {
	candidates := []string{"aa", "ab"}

	ti := textinput.New()
	ti.SetValue("a")
	ti.SetCursor(1)

	var c completer
	c.reset()

	seen := make([]string, 0, 3)

	for range 3 {
		c.cycle(&ti, candidates, 1)
		seen = append(seen, ti.Value())
	}

	// Two matches cycle back to the first on the third Tab.
	if seen[0] != seen[2] || seen[0] == seen[1] {
		t.Errorf("expected wrap-around cycling, got %v", seen)
	}
}

func TestCompleter_CycleBackward(t *testing.T) {
	candidates := []string{"aa", "ab"}

	ti := textinput.New()
	ti.SetValue("a")
	ti.SetCursor(1)

	var c completer
	c.reset()

	c.cycle(&ti, candidates, 1)
	forward := ti.Value()

	c.cycle(&ti, candidates, -1)
	backward := ti.Value()

	if forward == backward {
		t.Errorf("expected reverse cycling to change selection, got %q", forward)
	}
}

func TestCompleter_CycleNoMatches(t *testing.T) {
	ti := textinput.New()
	ti.SetValue("zzz")
	ti.SetCursor(3)

	var c completer
	c.reset()

	c.cycle(&ti, []string{"names"}, 1)

	if ti.Value() != "zzz" {
		t.Errorf("no match should leave input unchanged, got %q", ti.Value())
	}
}

func TestDedup(t *testing.T) {
	got := dedup([]string{"b", "a", "b", "c", "a"})

	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("expected sorted unique names, got %v", got)
	}
}
