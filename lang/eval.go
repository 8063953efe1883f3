package lang

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Render evaluates the template against the given scope and returns the
// rendered text.
//
// The template itself is never mutated: all per-render state lives in the
// scope and the output buffer, so one compiled template may render
// concurrently under any number of scopes.
func (t *Template) Render(
	ctx context.Context,
	scope *Scope,
	opts ...Option,
) (string, error) {
	var out strings.Builder

	err := t.Write(ctx, &out, scope, opts...)
	if err != nil {
		return "", err
	}

	return out.String(), nil
}

// Write renders the template against the given scope and writes the
// complete output to w in a single call. The render is assembled in
// memory first, so a failed evaluation writes nothing.
func (t *Template) Write(
	ctx context.Context,
	w io.Writer,
	scope *Scope,
	opts ...Option,
) error {
	cfg := makeConfig(opts...)

	eval := &evaluator{cfg: cfg}

	cfg.logger.TraceContext(
		ctx,
		"render start",
		slog.String("template", t.Name),
		slog.Int("node_count", len(t.Nodes)),
	)

	var out strings.Builder

	err := eval.renderNodes(ctx, t.Nodes, scope, &out)
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, out.String())
	if err != nil {
		return WrapError(err)
	}

	return nil
}

// EvaluateList evaluates any element expression against the scope and
// flattens the result. The returned sequence contains scalar items only,
// in order, with absent positions contributing nothing.
func EvaluateList(
	ctx context.Context,
	list *Expr,
	scope *Scope,
	opts ...Option,
) (FlatSequence, error) {
	eval := &evaluator{cfg: makeConfig(opts...)}

	v, err := eval.evalExpr(ctx, list, scope)
	if err != nil {
		return nil, err
	}

	return Flatten(v), nil
}

// ApplyTemplate maps a template over a source value.
//
// An absent source yields absent without instantiating the template. A
// scalar source yields a one-element sequence holding its rendered output.
// A sequence source yields a sequence of the same length, one application
// per element in order; an application that renders to the empty string
// still occupies its position. Absent elements pass through as absent
// without instantiation.
func ApplyTemplate(
	ctx context.Context,
	body *Template,
	source Value,
	scope *Scope,
	opts ...Option,
) (Value, error) {
	eval := &evaluator{cfg: makeConfig(opts...)}

	return eval.applyTemplate(ctx, body, source, scope)
}

// Flatten reduces a value to its flat scalar item sequence.
//
// Absent contributes zero items, a scalar contributes itself, and a
// sequence contributes its elements' flattenings spliced in order. The
// result length is therefore invariant under nesting of the input.
func Flatten(v Value) FlatSequence {
	out := make(FlatSequence, 0, v.Len())

	return appendFlat(out, v)
}

func appendFlat(out FlatSequence, v Value) FlatSequence {
	switch v.Kind {
	case KindScalar:
		return append(out, v)

	case KindSequence:
		for _, e := range v.Seq {
			out = appendFlat(out, e)
		}
	}

	return out
}

// spliceSource prepares an application source: nested sequences splice
// into one level, while absent positions are kept as elements so they
// pass through the mapping uninstantiated. Scalars and Absent are
// returned unchanged.
func spliceSource(v Value) Value {
	if v.Kind != KindSequence {
		return v
	}

	out := make([]Value, 0, len(v.Seq))

	return NewSequence(appendSpliced(out, v)...)
}

func appendSpliced(out []Value, v Value) []Value {
	for _, e := range v.Seq {
		if e.Kind == KindSequence {
			out = appendSpliced(out, e)

			continue
		}

		out = append(out, e)
	}

	return out
}

// evaluator carries the state of one rendering pass.
type evaluator struct {
	cfg   config
	depth int
}

// renderNodes renders a compiled node list into out.
func (e *evaluator) renderNodes(
	ctx context.Context,
	nodes []Node,
	scope *Scope,
	out *strings.Builder,
) error {
	for i := range nodes {
		if err := ctx.Err(); err != nil {
			return WrapError(err)
		}

		node := &nodes[i]

		switch node.Kind {
		case NodeText:
			out.WriteString(node.Text)

		case NodeEmit:
			err := e.renderEmit(ctx, node.Emit, scope, out)
			if err != nil {
				return err
			}

		case NodeCond:
			err := e.renderCond(ctx, node.Cond, scope, out)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// renderCond evaluates the condition and renders the selected branch.
func (e *evaluator) renderCond(
	ctx context.Context,
	cond *Cond,
	scope *Scope,
	out *strings.Builder,
) error {
	ok, err := evalCond(cond, scope)
	if err != nil {
		return err
	}

	e.cfg.logger.TraceContext(
		ctx,
		"conditional",
		slog.String("condition", cond.Source),
		slog.Bool("result", ok),
	)

	if ok {
		return e.renderNodes(ctx, cond.Then, scope, out)
	}

	return e.renderNodes(ctx, cond.Else, scope, out)
}

// renderEmit evaluates an emit expression, flattens the result, and writes
// the joined item text.
func (e *evaluator) renderEmit(
	ctx context.Context,
	emit *Emit,
	scope *Scope,
	out *strings.Builder,
) error {
	v, err := e.evalExpr(ctx, emit.Expr, scope)
	if err != nil {
		return err
	}

	var sep string

	if emit.Sep != nil {
		sv, err := e.evalExpr(ctx, emit.Sep, scope)
		if err != nil {
			return err
		}

		sep = sv.Text()
	}

	out.WriteString(Join(Flatten(v), sep))

	return nil
}

// evalExpr evaluates an element expression to a value.
func (e *evaluator) evalExpr(
	ctx context.Context,
	x *Expr,
	scope *Scope,
) (Value, error) {
	if e.depth >= e.cfg.maxDepth {
		return Absent(), ErrMaxDepthExceeded.
			With(slog.Int("max_depth", e.cfg.maxDepth))
	}

	e.depth++
	defer func() { e.depth-- }()

	switch x.Op {
	case OpAttr:
		return scope.Resolve(x.Name), nil

	case OpString:
		return NewScalar(x.Str), nil

	case OpList:
		return e.evalList(ctx, x, scope)

	case OpBuiltin:
		// The parser only emits registered names, but trees built
		// programmatically may carry anything.
		fn, ok := builtins[x.Name]
		if !ok {
			return Absent(), ErrUnknownBuiltin.
				With(slog.String("builtin", x.Name))
		}

		operand, err := e.evalExpr(ctx, x.Sub, scope)
		if err != nil {
			return Absent(), err
		}

		return fn(operand), nil

	case OpInline:
		text, err := e.instantiate(ctx, x.Body, scope.Child())
		if err != nil {
			return Absent(), err
		}

		return NewScalar(text), nil

	case OpApply:
		return e.evalApply(ctx, x, scope)

	default:
		return Absent(), ErrParse.
			With(slog.String("op", x.Op.String())).
			With(slog.String("issue", "unknown operation"))
	}
}

// evalList evaluates each element and collects the results as a sequence,
// raw and in order. Absent elements are preserved as positions; they vanish
// only under flattening, so builtins like strip and length observe them.
func (e *evaluator) evalList(
	ctx context.Context,
	x *Expr,
	scope *Scope,
) (Value, error) {
	seq := make([]Value, 0, len(x.List))

	for _, elem := range x.List {
		v, err := e.evalExpr(ctx, elem, scope)
		if err != nil {
			return Absent(), err
		}

		seq = append(seq, v)
	}

	return NewSequence(seq...), nil
}

// evalApply resolves the application body and maps it over the evaluated
// source expression. Nested sequences in the source are spliced first, so
// applying to a list literal maps over its items, not its sub-lists.
func (e *evaluator) evalApply(
	ctx context.Context,
	x *Expr,
	scope *Scope,
) (Value, error) {
	source, err := e.evalExpr(ctx, x.Sub, scope)
	if err != nil {
		return Absent(), err
	}

	source = spliceSource(source)

	body := x.Body

	if body == nil {
		body, err = e.lookupTemplate(x.Name)
		if err != nil {
			return Absent(), err
		}
	}

	return e.applyTemplate(ctx, body, source, scope)
}

// lookupTemplate resolves a named application body through the configured
// group. A missing group or undefined name is a malformed tree and fails
// the render immediately.
func (e *evaluator) lookupTemplate(name string) (*Template, error) {
	if e.cfg.group == nil {
		return nil, ErrUnresolvedBody.
			With(slog.String("template", name)).
			With(slog.String("issue", "no template group configured"))
	}

	body, ok := e.cfg.group.Lookup(name)
	if !ok {
		return nil, ErrUnresolvedBody.Wrap(ErrTemplateNotFound).
			With(slog.String("template", name))
	}

	return body, nil
}

// applyTemplate maps body over source per the application rules.
func (e *evaluator) applyTemplate(
	ctx context.Context,
	body *Template,
	source Value,
	scope *Scope,
) (Value, error) {
	if body == nil {
		return Absent(), ErrUnresolvedBody.
			With(slog.String("issue", "application has no body"))
	}

	switch source.Kind {
	case KindAbsent:
		return Absent(), nil

	case KindScalar:
		text, err := e.instantiateWith(ctx, body, scope, source, 0)
		if err != nil {
			return Absent(), err
		}

		return NewSequence(NewScalar(text)), nil

	default:
		seq := make([]Value, len(source.Seq))

		for i, elem := range source.Seq {
			if elem.Kind == KindAbsent {
				seq[i] = Absent()

				continue
			}

			text, err := e.instantiateWith(ctx, body, scope, elem, i)
			if err != nil {
				return Absent(), err
			}

			seq[i] = NewScalar(text)
		}

		return NewSequence(seq...), nil
	}
}

// instantiateWith renders body once in a child scope with the formal
// parameter bound to elem and the iteration attributes i (1-based) and i0
// (0-based) bound to the element index.
func (e *evaluator) instantiateWith(
	ctx context.Context,
	body *Template,
	scope *Scope,
	elem Value,
	index int,
) (string, error) {
	child := scope.Child()
	child.Bind(body.Formal(), elem)
	child.Bind("i", NewScalar(index+1))
	child.Bind("i0", NewScalar(index))

	return e.instantiate(ctx, body, child)
}

// instantiate renders a template body in the given scope, guarding
// recursion depth.
func (e *evaluator) instantiate(
	ctx context.Context,
	body *Template,
	scope *Scope,
) (string, error) {
	if e.depth >= e.cfg.maxDepth {
		return "", ErrMaxDepthExceeded.
			With(slog.Int("max_depth", e.cfg.maxDepth))
	}

	e.depth++
	defer func() { e.depth-- }()

	var out strings.Builder

	err := e.renderNodes(ctx, body.Nodes, scope, &out)
	if err != nil {
		return "", err
	}

	return out.String(), nil
}
