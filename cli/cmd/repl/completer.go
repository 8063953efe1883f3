package repl

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/weft/lang"
)

// ctrlCommands are the available control-mode commands.
var ctrlCommands = []string{
	"help", "attrs", "templates", "load", "clear", "quit",
}

// builtinNames are the template builtin functions offered as completions.
var builtinNames = lang.Builtins()

var (
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("6"))
	matchedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("4")).
			Bold(true)
	selectedMatchedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("6")).
				Bold(true)
)

// isWordBoundary reports whether the rune delimits a completion word.
// Template punctuation and whitespace are boundaries. Underscores and
// hyphens are not, since attribute names may contain them.
func isWordBoundary(r rune) bool {
	switch r {
	case ' ', '\t', '\n',
		'<', '>', '[', ']', '{', '}', '(', ')',
		':', ';', ',', '=', '"', '|', '\\', '.':
		return true
	}

	return false
}

// wordBounds returns the word surrounding the cursor and its byte bounds
// within input. The word is empty when the cursor sits on a boundary.
func wordBounds(input string, cursor int) (word string, start, end int) {
	if cursor > len(input) {
		cursor = len(input)
	}

	start = cursor

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor

	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// completer tracks the fuzzy-match state for the word at the cursor.
// index is the match applied by Tab cycling, or -1 when none is selected.
type completer struct {
	matches    fuzzy.Matches
	start, end int
	index      int
}

func (c *completer) reset() {
	c.matches = nil
	c.index = -1
}

// refresh recomputes matches for the word at the cursor. Called on every
// non-Tab keystroke, so cycling state resets whenever the input changes.
func (c *completer) refresh(input string, cursor int, candidates []string) {
	word, start, end := wordBounds(input, cursor)
	if word == "" {
		c.reset()

		return
	}

	c.start, c.end = start, end
	c.index = -1
	c.matches = fuzzy.Find(word, dedup(candidates))
}

// cycle applies the next (or previous) match to the input, replacing the
// word under the cursor.
func (c *completer) cycle(ti *textinput.Model, candidates []string, delta int) {
	if len(c.matches) == 0 {
		c.refresh(ti.Value(), ti.Position(), candidates)

		if len(c.matches) == 0 {
			return
		}
	}

	c.index = (c.index + delta + len(c.matches)) % len(c.matches)

	input := ti.Value()
	selected := c.matches[c.index].Str

	ti.SetValue(input[:c.start] + selected + input[c.end:])
	ti.SetCursor(c.start + len(selected))

	c.end = c.start + len(selected)
}

// bar renders the single-line candidate list, ellipsized to fit width.
func (c *completer) bar(width int) string {
	if len(c.matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range c.matches {
		rendered := renderCandidate(match, i == c.index)

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += lipgloss.Width(sep)
		}

		if used+entryWidth+ellipsisWidth > width && i > 0 {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders one candidate with its matched runes highlighted.
func renderCandidate(match fuzzy.Match, selected bool) string {
	base, highlight := suggestionStyle, matchedStyle
	if selected {
		base, highlight = selectedStyle, selectedMatchedStyle
	}

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(highlight.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}

	return b.String()
}

func dedup(names []string) []string {
	slices.Sort(names)

	return slices.Compact(names)
}
