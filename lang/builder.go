package lang

// Builder provides a programmatic API for constructing compiled template
// trees without parsing source text. This is useful for embedding
// evaluation in tools that already have structured input, and for testing
// the evaluator independently of the parser.
//
// Example:
//
//	b := lang.NewBuilder()
//	t := b.Template(
//	    b.EmitSep(b.List(b.Attr("names"), b.Attr("phones")), b.Str(", ")),
//	)
type Builder struct{}

// NewBuilder creates a new template tree builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Template assembles nodes into a compiled template.
func (b *Builder) Template(nodes ...Node) *Template {
	return &Template{Nodes: nodes}
}

// Subtemplate assembles nodes into an application body with an optional
// formal parameter name. An empty formal declares none.
func (b *Builder) Subtemplate(formal string, nodes ...Node) *Template {
	t := &Template{Nodes: nodes}

	if formal != "" {
		t.Params = []string{formal}
	}

	return t
}

// Text creates a literal text node.
func (b *Builder) Text(text string) Node {
	return Node{Kind: NodeText, Text: text}
}

// Emit creates an emit node with no separator.
func (b *Builder) Emit(expr *Expr) Node {
	return Node{Kind: NodeEmit, Emit: &Emit{Expr: expr}}
}

// EmitSep creates an emit node with a separator expression.
func (b *Builder) EmitSep(expr, sep *Expr) Node {
	return Node{Kind: NodeEmit, Emit: &Emit{Expr: expr, Sep: sep}}
}

// Cond creates a conditional node, compiling the condition source.
func (b *Builder) Cond(source string, then, alt []Node) (Node, error) {
	program, err := compileCond(source)
	if err != nil {
		return Node{}, err
	}

	return Node{
		Kind: NodeCond,
		Cond: &Cond{
			Source:  source,
			Program: program,
			Then:    then,
			Else:    alt,
		},
	}, nil
}

// Attr creates an attribute reference expression.
func (b *Builder) Attr(name string) *Expr {
	return &Expr{Op: OpAttr, Name: name}
}

// Str creates a string literal expression.
func (b *Builder) Str(text string) *Expr {
	return &Expr{Op: OpString, Str: text}
}

// List creates a list literal expression.
func (b *Builder) List(elems ...*Expr) *Expr {
	return &Expr{Op: OpList, List: elems}
}

// Apply creates an application of an anonymous body over source.
func (b *Builder) Apply(source *Expr, body *Template) *Expr {
	return &Expr{Op: OpApply, Sub: source, Body: body}
}

// ApplyNamed creates an application of a group-resolved template over
// source.
func (b *Builder) ApplyNamed(source *Expr, name string) *Expr {
	return &Expr{Op: OpApply, Sub: source, Name: name}
}

// Inline creates a bare anonymous subtemplate element.
func (b *Builder) Inline(body *Template) *Expr {
	return &Expr{Op: OpInline, Body: body}
}

// Builtin creates a builtin invocation expression.
func (b *Builder) Builtin(name string, operand *Expr) *Expr {
	return &Expr{Op: OpBuiltin, Name: name, Sub: operand}
}
