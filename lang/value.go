package lang

import (
	"fmt"
	"iter"
	"strconv"
)

// Kind classifies an evaluation result.
type Kind int

const (
	// KindAbsent represents a name with no binding or a nil datum.
	// The zero Value is Absent.
	KindAbsent Kind = iota

	// KindScalar represents a single opaque datum with no further structure.
	KindScalar

	// KindSequence represents an ordered, possibly nested collection of
	// values.
	KindSequence
)

// String returns a string representation of the value kind.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "Absent"

	case KindScalar:
		return "Scalar"

	case KindSequence:
		return "Sequence"

	default:
		return "Unknown"
	}
}

// Value is the tagged representation of an evaluation result.
//
// Classification is total: every datum reachable from a compiled template is
// Absent, Scalar, or Sequence. Sequences may nest; flattening is performed by
// the evaluator, never by the representation itself.
//
// The zero Value is Absent.
type Value struct {
	Kind Kind
	// Exactly one of these is meaningful based on Kind
	Datum any     // For scalars
	Seq   []Value // For sequences
}

// Absent returns the absent value.
func Absent() Value {
	return Value{}
}

// NewScalar creates a scalar value holding the given datum.
// A nil datum yields the absent value.
func NewScalar(datum any) Value {
	if datum == nil {
		return Absent()
	}

	return Value{Kind: KindScalar, Datum: datum}
}

// NewSequence creates a sequence value with the given elements.
// The elements are referenced, not copied; callers must not mutate the slice
// after construction.
func NewSequence(elems ...Value) Value {
	return Value{Kind: KindSequence, Seq: elems}
}

// Classify converts an arbitrary Go datum to its Value representation.
//
// Rules, applied in order:
//   - nil is Absent
//   - a Value passes through unchanged
//   - a FlatSequence becomes a Sequence of its items
//   - []any and []string become Sequences with each element classified
//   - everything else is a Scalar holding the datum verbatim
func Classify(datum any) Value {
	switch d := datum.(type) {
	case nil:
		return Absent()

	case Value:
		return d

	case FlatSequence:
		return d.Value()

	case []any:
		seq := make([]Value, len(d))
		for i, e := range d {
			seq[i] = Classify(e)
		}

		return NewSequence(seq...)

	case []string:
		seq := make([]Value, len(d))
		for i, e := range d {
			seq[i] = NewScalar(e)
		}

		return NewSequence(seq...)

	default:
		return NewScalar(datum)
	}
}

// IsEmpty reports whether the value is absent or a zero-length sequence.
// Scalars are never empty, including a scalar holding the empty string.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindAbsent:
		return true

	case KindSequence:
		return len(v.Seq) == 0

	default:
		return false
	}
}

// Len returns the number of elements the value contributes to iteration:
// 0 for Absent, 1 for a Scalar, and the element count for a Sequence.
func (v Value) Len() int {
	switch v.Kind {
	case KindAbsent:
		return 0

	case KindSequence:
		return len(v.Seq)

	default:
		return 1
	}
}

// All returns an order-preserving iterator over the value's elements.
// A Scalar yields itself once; Absent yields nothing.
func (v Value) All() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		switch v.Kind {
		case KindAbsent:

		case KindScalar:
			yield(v)

		case KindSequence:
			for _, e := range v.Seq {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// Text returns the textual form of a scalar value.
// Absent values render as the empty string. Sequence values render as the
// concatenation of their elements' textual forms.
func (v Value) Text() string {
	switch v.Kind {
	case KindAbsent:
		return ""

	case KindSequence:
		var out string
		for _, e := range v.Seq {
			out += e.Text()
		}

		return out
	}

	switch d := v.Datum.(type) {
	case string:
		return d

	case bool:
		return strconv.FormatBool(d)

	case int:
		return strconv.Itoa(d)

	case int64:
		return strconv.FormatInt(d, 10)

	case uint64:
		return strconv.FormatUint(d, 10)

	case float64:
		return strconv.FormatFloat(d, 'f', -1, 64)

	case fmt.Stringer:
		return d.String()

	default:
		return fmt.Sprintf("%v", d)
	}
}

// FlatSequence is the flattening evaluator's output: an ordered sequence of
// scalar values only, never containing Sequence or Absent items.
//
// A FlatSequence is constructed fresh per evaluation and never mutated after
// construction, so sharing across goroutines is always safe. It may be bound
// directly as the value of a new attribute, at which point it behaves exactly
// like any other multi-valued attribute.
type FlatSequence []Value

// Value re-wraps the flat sequence as a first-class Sequence value.
func (fs FlatSequence) Value() Value {
	return NewSequence(fs...)
}

// Strings returns the textual form of every item in order.
func (fs FlatSequence) Strings() []string {
	out := make([]string, len(fs))
	for i, v := range fs {
		out[i] = v.Text()
	}

	return out
}
