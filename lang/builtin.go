package lang

import "slices"

// builtinFunc transforms an evaluated operand value.
type builtinFunc func(Value) Value

// Builtins returns the names of all builtin functions, sorted.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// builtins maps the recognized builtin function names to implementations.
// Each builtin receives its operand as evaluated, before flattening, so
// absent positions inside list literals remain observable.
var builtins = map[string]builtinFunc{
	"first":   builtinFirst,
	"last":    builtinLast,
	"rest":    builtinRest,
	"trunc":   builtinTrunc,
	"strip":   builtinStrip,
	"length":  builtinLength,
	"reverse": builtinReverse,
}

// builtinFirst returns the first element of a sequence. A scalar is its own
// first element. Empty input yields absent.
func builtinFirst(v Value) Value {
	switch v.Kind {
	case KindScalar:
		return v

	case KindSequence:
		if len(v.Seq) == 0 {
			return Absent()
		}

		return v.Seq[0]

	default:
		return Absent()
	}
}

// builtinLast returns the final element of a sequence. A scalar is its own
// last element.
func builtinLast(v Value) Value {
	switch v.Kind {
	case KindScalar:
		return v

	case KindSequence:
		if len(v.Seq) == 0 {
			return Absent()
		}

		return v.Seq[len(v.Seq)-1]

	default:
		return Absent()
	}
}

// builtinRest returns everything after the first element. Scalars and empty
// sequences have no rest.
func builtinRest(v Value) Value {
	if v.Kind != KindSequence || len(v.Seq) == 0 {
		return Absent()
	}

	return NewSequence(v.Seq[1:]...)
}

// builtinTrunc returns everything before the last element. Scalars and
// empty sequences truncate to absent.
func builtinTrunc(v Value) Value {
	if v.Kind != KindSequence || len(v.Seq) == 0 {
		return Absent()
	}

	return NewSequence(v.Seq[:len(v.Seq)-1]...)
}

// builtinStrip removes absent elements from a sequence. Scalars pass
// through unchanged.
func builtinStrip(v Value) Value {
	if v.Kind != KindSequence {
		return v
	}

	kept := make([]Value, 0, len(v.Seq))

	for _, elem := range v.Seq {
		if elem.Kind != KindAbsent {
			kept = append(kept, elem)
		}
	}

	return NewSequence(kept...)
}

// builtinLength returns the element count: 0 for absent, 1 for a scalar,
// and the sequence length otherwise.
func builtinLength(v Value) Value {
	return NewScalar(v.Len())
}

// builtinReverse returns the sequence with element order reversed. Scalars
// pass through unchanged.
func builtinReverse(v Value) Value {
	if v.Kind != KindSequence {
		return v
	}

	rev := make([]Value, len(v.Seq))

	for i, elem := range v.Seq {
		rev[len(v.Seq)-1-i] = elem
	}

	return NewSequence(rev...)
}
