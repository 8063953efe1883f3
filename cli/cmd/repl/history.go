package repl

import (
	"bufio"
	"os"
	"strings"
	"sync"
)

const baseHistory = "history.utf8"

// historyEntry is a single persisted input line tagged with the mode it was
// entered in.
type historyEntry struct {
	line string
	mode inputMode
}

// History records input lines across sessions. Entries persist to a flat
// file, one line each, prefixed "E:" for render mode or "C:" for command
// mode.
type History struct {
	path    string
	entries []historyEntry
	mu      sync.RWMutex
}

// NewHistory returns a History backed by the file at path. The file need not
// exist until the first Append.
func NewHistory(path string) *History {
	return &History{path: path}
}

// Load replaces in-memory entries with the contents of the history file.
// A missing file is not an error.
func (h *History) Load() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := os.Open(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}
	defer file.Close()

	h.entries = nil

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		entry := historyEntry{mode: modeEval}

		switch {
		case strings.HasPrefix(line, "E:"):
			entry.line = line[2:]

		case strings.HasPrefix(line, "C:"):
			entry.line = line[2:]
			entry.mode = modeCtrl

		default:
			// Unprefixed lines from older files count as render input.
			entry.line = line
		}

		h.entries = append(h.entries, entry)
	}

	return scanner.Err()
}

// Append records a line for the given mode and persists it. Repeating the
// most recent entry is a no-op; an earlier duplicate moves to the end.
func (h *History) Append(line string, mode inputMode) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.entries); n > 0 &&
		h.entries[n-1].line == line && h.entries[n-1].mode == mode {
		return nil
	}

	moved := false

	for i, e := range h.entries {
		if e.line == line && e.mode == mode {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			moved = true

			break
		}
	}

	h.entries = append(h.entries, historyEntry{line: line, mode: mode})

	if moved {
		return h.rewrite()
	}

	file, err := os.OpenFile(
		h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600,
	)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(prefix(mode) + line + "\n")

	return err
}

// Entries returns the recorded lines for the given mode, oldest first.
func (h *History) Entries(mode inputMode) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var lines []string

	for _, e := range h.entries {
		if e.mode == mode {
			lines = append(lines, e.line)
		}
	}

	return lines
}

// Count returns the number of entries recorded for the given mode.
func (h *History) Count(mode inputMode) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0

	for _, e := range h.entries {
		if e.mode == mode {
			n++
		}
	}

	return n
}

// Len returns the total number of entries across both modes.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}

func prefix(mode inputMode) string {
	if mode == modeCtrl {
		return "C:"
	}

	return "E:"
}

// rewrite replaces the history file with the current entries.
// Caller must hold h.mu.
func (h *History) rewrite() error {
	file, err := os.OpenFile(
		h.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600,
	)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)

	for _, e := range h.entries {
		if _, err := w.WriteString(prefix(e.mode) + e.line + "\n"); err != nil {
			return err
		}
	}

	return w.Flush()
}
