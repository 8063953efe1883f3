package lang

import (
	"github.com/expr-lang/expr/vm"

	"github.com/ardnew/weft/log"
)

// Template is a compiled template body: a sequence of literal text chunks
// and embedded expressions.
//
// Templates are immutable once compiled and may be shared read-only across
// any number of concurrent render invocations. This is the sole invariant a
// concurrent caller must preserve; each invocation allocates its own scope
// and output.
type Template struct {
	Name   string
	Params []string
	Nodes  []Node
}

// Formal returns the name the mapper binds each source element to when the
// template is applied: the first declared parameter, or the implicit
// parameter "it" when the template declares none.
func (t *Template) Formal() string {
	if len(t.Params) > 0 {
		return t.Params[0]
	}

	return ImplicitParam
}

// ImplicitParam is the parameter name bound by template application when an
// anonymous subtemplate declares no formal parameter.
const ImplicitParam = "it"

// NodeKind indicates the kind of template node.
type NodeKind int

const (
	// NodeText represents a literal text chunk emitted verbatim.
	NodeText NodeKind = iota

	// NodeEmit represents an embedded expression whose evaluated value is
	// flattened and written, optionally joined with a separator.
	NodeEmit

	// NodeCond represents a conditional region guarded by an expr-lang
	// condition.
	NodeCond
)

// String returns a string representation of the node kind.
func (k NodeKind) String() string {
	switch k {
	case NodeText:
		return "Text"

	case NodeEmit:
		return "Emit"

	case NodeCond:
		return "Cond"

	default:
		return "Unknown"
	}
}

// Node is a single element of a compiled template body.
type Node struct {
	Kind NodeKind
	// Exactly one of these will be set based on Kind
	Text string // For literal text chunks
	Emit *Emit  // For embedded expressions
	Cond *Cond  // For conditional regions
}

// Emit is an embedded expression together with its rendering options.
type Emit struct {
	Expr *Expr
	Sep  *Expr // separator option, or nil for direct concatenation
}

// Cond is a conditional region. The condition source is compiled once, at
// template compile time, and evaluated against the attribute scope on every
// render.
type Cond struct {
	Source  string
	Program *vm.Program
	Then    []Node
	Else    []Node
}

// Op indicates the operation of an element expression.
type Op int

const (
	// OpAttr references a named attribute in the evaluation scope.
	OpAttr Op = iota

	// OpString is a literal scalar.
	OpString

	// OpList constructs an ordered list from element expressions.
	OpList

	// OpApply applies a compiled subtemplate to each element of a source
	// expression's value.
	OpApply

	// OpInline is an anonymous subtemplate used as a bare element: one
	// scalar whose value is the rendered text of the subtemplate evaluated
	// once against the enclosing scope.
	OpInline

	// OpBuiltin invokes a sequence builtin (first, last, rest, trunc,
	// strip, length, reverse) on an operand expression.
	OpBuiltin
)

// String returns a string representation of the expression operation.
func (op Op) String() string {
	switch op {
	case OpAttr:
		return "Attr"

	case OpString:
		return "String"

	case OpList:
		return "List"

	case OpApply:
		return "Apply"

	case OpInline:
		return "Inline"

	case OpBuiltin:
		return "Builtin"

	default:
		return "Unknown"
	}
}

// Expr is an element expression in a compiled template.
//
// Produced by the compiler, consumed read-only by the evaluator, and
// immutable once compiled.
type Expr struct {
	Op Op
	// Which fields are set depends on Op
	Name string    // Attribute name, builtin name, or named body reference
	Str  string    // Literal text (OpString)
	List []*Expr   // Element expressions (OpList)
	Sub  *Expr     // Source (OpApply) or operand (OpBuiltin)
	Body *Template // Compiled subtemplate (OpApply, OpInline); nil for a named reference
}

// DefaultMaxDepth is the default maximum nesting depth for subtemplates and
// list literals. Users may override it per parse with [WithMaxDepth].
const DefaultMaxDepth = 100

// config holds parse and render options.
type config struct {
	group    *Group
	logger   log.Logger
	maxDepth int
}

// Option configures template parsing or evaluation behavior.
type Option func(*config)

// WithGroup sets the template group used to resolve named subtemplate
// references during evaluation.
func WithGroup(g *Group) Option {
	return func(c *config) {
		c.group = g
	}
}

// WithLogger sets the structured logger for trace-level debugging.
// If not provided, the logger is zero-valued and all logging is a no-op.
func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMaxDepth sets the maximum nesting depth for subtemplates and list
// literals.
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		c.maxDepth = depth
	}
}

// makeConfig applies defaults then the given options.
func makeConfig(opts ...Option) config {
	cfg := config{
		maxDepth: DefaultMaxDepth,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}
