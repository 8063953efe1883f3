package lang

import (
	"context"
	"io"
	"log/slog"

	"github.com/goccy/go-yaml"
)

// Scope holds the attribute bindings visible to a template evaluation.
//
// A name may be bound to zero, one, or many values. Binding order is
// preserved per name: repeated [Scope.Add] calls under one name build an
// ordered multi-value list. A name with zero bound values is absent, which
// is distinct from a name bound to one empty-string value.
//
// Scopes form a chain: names not bound locally are resolved through the
// parent. The scope owns its bindings for the lifetime of one rendering
// pass; the compiled template tree it evaluates is never mutated.
type Scope struct {
	parent *Scope
	binds  map[string][]Value
	names  []string // insertion order of first binding
}

// NewScope creates an empty top-level scope.
func NewScope() *Scope {
	return &Scope{
		binds: make(map[string][]Value),
	}
}

// Child creates a new scope nested inside the receiver.
// Names not bound in the child resolve through the receiver.
func (s *Scope) Child() *Scope {
	return &Scope{
		parent: s,
		binds:  make(map[string][]Value),
	}
}

// Add appends one or more values to the binding for name, classifying each
// datum via [Classify]. Nil data are skipped so an Add with only nil values
// leaves the name absent.
func (s *Scope) Add(name string, data ...any) *Scope {
	for _, d := range data {
		v := Classify(d)
		if v.Kind == KindAbsent {
			continue
		}

		s.bind(name, v)
	}

	return s
}

// Bind replaces any existing binding for name with the single given value.
// Binding Absent removes the name's local binding entirely.
//
// This is how a FlatSequence produced by [EvaluateList] is passed as a
// single argument to another template: bind it, and downstream evaluation
// treats it exactly like any other multi-valued attribute.
func (s *Scope) Bind(name string, v Value) *Scope {
	if _, ok := s.binds[name]; !ok && v.Kind != KindAbsent {
		s.names = append(s.names, name)
	}

	if v.Kind == KindAbsent {
		delete(s.binds, name)

		return s
	}

	s.binds[name] = []Value{v}

	return s
}

// bind appends a single classified value, tracking first-seen name order.
func (s *Scope) bind(name string, v Value) {
	if _, ok := s.binds[name]; !ok {
		s.names = append(s.names, name)
	}

	s.binds[name] = append(s.binds[name], v)
}

// Resolve returns the value bound to name.
//
// A name bound once resolves to that value as-is; a name bound repeatedly
// resolves to a Sequence of its values in binding order; an unbound name
// resolves through the parent chain, and finally to Absent. Resolution is
// total: referencing a name with no binding anywhere in scope is never an
// error.
func (s *Scope) Resolve(name string) Value {
	for cur := s; cur != nil; cur = cur.parent {
		vals, ok := cur.binds[name]
		if !ok {
			continue
		}

		switch len(vals) {
		case 0:
			return Absent()

		case 1:
			return vals[0]

		default:
			return NewSequence(vals...)
		}
	}

	return Absent()
}

// Names returns every name bound in this scope and its ancestors, in
// first-bound order from outermost to innermost, without duplicates.
func (s *Scope) Names() []string {
	var chain []*Scope
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}

	seen := make(map[string]struct{})

	var out []string

	for i := len(chain) - 1; i >= 0; i-- {
		for _, name := range chain[i].names {
			if _, ok := seen[name]; ok {
				continue
			}

			if _, bound := chain[i].binds[name]; !bound {
				continue
			}

			seen[name] = struct{}{}

			out = append(out, name)
		}
	}

	return out
}

// LoadYAML merges attribute bindings from a YAML document into the scope.
//
// The document must be a mapping. Each key becomes an attribute name; a
// sequence value becomes a multi-valued binding with one entry per element,
// and any other value becomes a single-valued binding. Key order
// in the document is preserved as binding order.
func (s *Scope) LoadYAML(ctx context.Context, data []byte) error {
	var doc yaml.MapSlice

	err := yaml.UnmarshalContext(ctx, data, &doc)
	if err != nil {
		return ErrLoadAttributes.Wrap(err)
	}

	for _, item := range doc {
		name, ok := item.Key.(string)
		if !ok {
			return ErrLoadAttributes.
				With(slog.Any("key", item.Key)).
				With(slog.String("issue", "attribute name is not a string"))
		}

		switch val := item.Value.(type) {
		case []any:
			s.Add(name, val...)

		default:
			s.Add(name, val)
		}
	}

	return nil
}

// LoadAttributes builds a new scope from one or more YAML documents read
// from r. Later documents merge into (append to) earlier bindings.
func LoadAttributes(ctx context.Context, r io.Reader) (*Scope, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrReadInput.Wrap(err)
	}

	s := NewScope()

	err = s.LoadYAML(ctx, data)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// native converts a resolved value to its plain Go representation for use
// in condition-expression environments: Absent becomes nil, a Scalar its
// datum, and a Sequence a []any with each element converted.
func native(v Value) any {
	switch v.Kind {
	case KindAbsent:
		return nil

	case KindScalar:
		return v.Datum

	case KindSequence:
		out := make([]any, len(v.Seq))
		for i, e := range v.Seq {
			out[i] = native(e)
		}

		return out

	default:
		return nil
	}
}
