package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values).
var (
	ErrParse            = NewError("template syntax error")
	ErrUnclosedExpr     = NewError("unclosed expression")
	ErrUnclosedTemplate = NewError("unclosed subtemplate")
	ErrMaxDepthExceeded = NewError("maximum nesting depth exceeded")
	ErrUnresolvedBody   = NewError("template application body is unresolved")
	ErrUnknownBuiltin   = NewError("unknown builtin function")
	ErrTemplateNotFound = NewError("template not found")
	ErrGroupSyntax      = NewError("group syntax error")
	ErrCondCompile      = NewError("condition compilation failed")
	ErrCondEvaluate     = NewError("condition evaluation failed")
	ErrReadInput        = NewError("failed to read input")
	ErrLoadAttributes   = NewError("failed to load attributes")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	attrs []slog.Attr // Attributes for structured logging
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError wraps a standard error into an Error.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	// Build error message using the first available format,
	// depending on which fields are set:
	//
	//   1. "<msg>: <err>" // base and wrapped error both set
	//   2. "<msg>"        // wrapped error is nil
	//   3. "<err>"        // base error message is empty
	//   4. ""             // no fields are set
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is matches any Error carrying the same base message, so a decorated
// sentinel still satisfies errors.Is against the bare sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.msg == e.msg && e.msg != ""
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs, // Share attrs
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
	}
}

// Position identifies a location in template source.
type Position struct {
	Offset int
	Line   int
	Column int
}

// WithPosition adds source-position attributes to the error.
func (e *Error) WithPosition(pos Position) *Error {
	return e.With(
		slog.Int("line", pos.Line),
		slog.Int("column", pos.Column),
	)
}

// Snippet renders the offending source line with a caret marker under the
// given position, suitable for inclusion in error output.
func Snippet(source string, pos Position) string {
	lines := strings.Split(source, "\n")
	if pos.Line < 1 || pos.Line > len(lines) {
		return ""
	}

	line := lines[pos.Line-1]

	var buf strings.Builder

	// Print the line with line number
	buf.WriteString("  ")
	buf.WriteString(strconv.Itoa(pos.Line))
	buf.WriteString(" | ")
	buf.WriteString(line)
	buf.WriteRune('\n')

	// Print marker pointing to the column
	// Calculate the width needed for line number display
	lineNumWidth := len(strconv.Itoa(pos.Line))
	// +5 accounts for: 2 leading spaces + " | " (3 chars)
	padding := strings.Repeat(" ", lineNumWidth+5)

	// Add spaces to reach the error column
	if pos.Column > 0 {
		padding += strings.Repeat(" ", pos.Column-1)
	}

	buf.WriteString(padding + "^")

	return buf.String()
}
