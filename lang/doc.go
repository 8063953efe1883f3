// Package lang compiles and renders attribute-driven text templates.
//
// A template is literal text with embedded expressions delimited by '<'
// and '>'. Expressions evaluate against a [Scope] of named attributes,
// where every attribute holds zero, one, or many values. Evaluation is
// total over attribute data: referencing an unbound name yields absent,
// which renders as nothing. The only render-time faults are malformed
// trees, such as an application whose named body is undefined.
//
// # Grammar
//
// Informal EBNF:
//
//	Template    → (Text | Emit | Cond)* EOF
//	Emit        → '<' Element (';' 'separator' '=' Element)? '>'
//	Cond        → '<if(' Condition ')>' Template
//	              ('<else>' Template)? '<endif>'
//	Element     → Unary (':' Target)*
//	Target      → Subtemplate | Identifier '(' ')'
//	Unary       → List | String | Subtemplate | Builtin | Identifier
//	List        → '[' (Element (',' Element)*)? ']'
//	Builtin     → BuiltinName '(' Element ')'
//	Subtemplate → '{' (Identifier '|')? Template '}'
//
// Conditions are expr-lang expressions evaluated against the visible
// attributes. Builtins are first, last, rest, trunc, strip, length, and
// reverse.
//
// # Evaluation
//
// Expression results are tagged values: absent, scalar, or sequence.
// A list literal evaluates each element and keeps the results in order,
// absent positions included. Emitting a value flattens it to a sequence
// of scalars (splicing nested sequences, dropping absent positions),
// renders each item as text, and joins the non-empty fragments with the
// separator.
//
// Applying a template to a value maps it element-wise: absent yields
// absent without instantiation, a scalar yields one rendered output, and
// a sequence yields one output per element in order. Inside the body the
// formal parameter (or "it" when none is declared) names the current
// element, and i and i0 hold its one- and zero-based index.
//
// # Example
//
//	names:  [Ter, Tom]
//	phones: ["1", "2"]
//
//	<[names, phones]; separator=", ">         renders "Ter, Tom, 1, 2"
//	<names:{n|<n>!}; separator=" ">           renders "Ter! Tom!"
//	<if(names)>hello<else>empty<endif>        renders "hello"
//
// Compiled templates are immutable and safe for concurrent rendering;
// each render carries its own scope and output buffer.
package lang
