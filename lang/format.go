package lang

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Format writes the template's canonical source form to w. Compiling the
// output yields a tree equivalent to the receiver.
func (t *Template) Format(_ context.Context, w io.Writer) error {
	var out strings.Builder

	formatNodes(&out, t.Nodes)

	_, err := io.WriteString(w, out.String())
	if err != nil {
		return WrapError(err)
	}

	return nil
}

// Format writes every definition in the group in canonical group-file
// syntax, in definition order.
func (g *Group) Format(ctx context.Context, w io.Writer) error {
	for i, name := range g.Names() {
		t, ok := g.Lookup(name)
		if !ok {
			continue
		}

		var out strings.Builder

		if i > 0 {
			out.WriteString("\n")
		}

		out.WriteString(name)
		out.WriteString("(")
		out.WriteString(strings.Join(t.Params, ", "))
		out.WriteString(") ::= <<\n")

		_, err := io.WriteString(w, out.String())
		if err != nil {
			return WrapError(err)
		}

		err = t.Format(ctx, w)
		if err != nil {
			return err
		}

		_, err = io.WriteString(w, "\n>>\n")
		if err != nil {
			return WrapError(err)
		}
	}

	return nil
}

// FormatYAML writes the scope's visible attribute bindings as a YAML
// mapping to w, in binding order. Multi-valued attributes emit as
// sequences.
func (s *Scope) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	doc := make(yaml.MapSlice, 0)

	for _, name := range s.Names() {
		doc = append(doc, yaml.MapItem{
			Key:   name,
			Value: native(s.Resolve(name)),
		})
	}

	opts := []yaml.EncodeOption{yaml.UseLiteralStyleIfMultiline(true)}
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	}

	data, err := yaml.MarshalContext(ctx, doc, opts...)
	if err != nil {
		return ErrLoadAttributes.Wrap(err)
	}

	_, err = w.Write(data)
	if err != nil {
		return WrapError(err)
	}

	return nil
}

func formatNodes(out *strings.Builder, nodes []Node) {
	for i := range nodes {
		node := &nodes[i]

		switch node.Kind {
		case NodeText:
			formatText(out, node.Text)

		case NodeEmit:
			out.WriteString("<")
			formatExpr(out, node.Emit.Expr)

			if node.Emit.Sep != nil {
				out.WriteString("; separator=")
				formatExpr(out, node.Emit.Sep)
			}

			out.WriteString(">")

		case NodeCond:
			out.WriteString("<if(")
			out.WriteString(node.Cond.Source)
			out.WriteString(")>")
			formatNodes(out, node.Cond.Then)

			if node.Cond.Else != nil {
				out.WriteString("<else>")
				formatNodes(out, node.Cond.Else)
			}

			out.WriteString("<endif>")
		}
	}
}

// formatText escapes delimiter characters so the output reparses as the
// same literal text.
func formatText(out *strings.Builder, text string) {
	for _, r := range text {
		switch r {
		case '<', '\\', '}':
			out.WriteRune('\\')
		}

		out.WriteRune(r)
	}
}

func formatExpr(out *strings.Builder, x *Expr) {
	switch x.Op {
	case OpAttr:
		out.WriteString(x.Name)

	case OpString:
		out.WriteString(strconv.Quote(x.Str))

	case OpList:
		out.WriteString("[")

		for i, elem := range x.List {
			if i > 0 {
				out.WriteString(", ")
			}

			formatExpr(out, elem)
		}

		out.WriteString("]")

	case OpBuiltin:
		out.WriteString(x.Name)
		out.WriteString("(")
		formatExpr(out, x.Sub)
		out.WriteString(")")

	case OpInline:
		formatSubtemplate(out, x.Body)

	case OpApply:
		formatExpr(out, x.Sub)
		out.WriteString(":")

		if x.Body != nil {
			formatSubtemplate(out, x.Body)
		} else {
			out.WriteString(x.Name)
			out.WriteString("()")
		}
	}
}

func formatSubtemplate(out *strings.Builder, body *Template) {
	out.WriteString("{")

	if len(body.Params) > 0 {
		out.WriteString(body.Params[0])
		out.WriteString("|")
	}

	formatNodes(out, body.Nodes)

	out.WriteString("}")
}
