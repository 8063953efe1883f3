package lang

import (
	"errors"
	"strings"
	"testing"
)

func TestParse_TextOnly(t *testing.T) {
	tmpl, err := ParseString(t.Context(), "just text")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if len(tmpl.Nodes) != 1 || tmpl.Nodes[0].Kind != NodeText {
		t.Fatalf("expected one text node, got %+v", tmpl.Nodes)
	}

	if tmpl.Nodes[0].Text != "just text" {
		t.Errorf("unexpected text %q", tmpl.Nodes[0].Text)
	}
}

func TestParse_Empty(t *testing.T) {
	tmpl, err := ParseString(t.Context(), "")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if len(tmpl.Nodes) != 0 {
		t.Errorf("expected no nodes, got %+v", tmpl.Nodes)
	}
}

func TestParse_AttrEmit(t *testing.T) {
	tmpl, err := ParseString(t.Context(), "a<name>b")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if len(tmpl.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(tmpl.Nodes))
	}

	emit := tmpl.Nodes[1]
	if emit.Kind != NodeEmit || emit.Emit.Expr.Op != OpAttr {
		t.Fatalf("expected attribute emit, got %+v", emit)
	}

	if emit.Emit.Expr.Name != "name" {
		t.Errorf("unexpected attribute %q", emit.Emit.Expr.Name)
	}

	if emit.Emit.Sep != nil {
		t.Error("expected no separator")
	}
}

func TestParse_SeparatorOption(t *testing.T) {
	tmpl, err := ParseString(t.Context(), `<names; separator=", ">`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	emit := tmpl.Nodes[0].Emit
	if emit.Sep == nil || emit.Sep.Op != OpString || emit.Sep.Str != ", " {
		t.Errorf("unexpected separator %+v", emit.Sep)
	}
}

func TestParse_UnknownOption(t *testing.T) {
	_, err := ParseString(t.Context(), `<names; wrap=", ">`)
	if !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestParse_ListLiteral(t *testing.T) {
	tmpl, err := ParseString(t.Context(), `<[a, "s", [b]]>`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	list := tmpl.Nodes[0].Emit.Expr
	if list.Op != OpList || len(list.List) != 3 {
		t.Fatalf("expected 3-element list, got %+v", list)
	}

	if list.List[0].Op != OpAttr || list.List[1].Op != OpString {
		t.Errorf("unexpected element ops: %+v", list.List)
	}

	if list.List[2].Op != OpList || len(list.List[2].List) != 1 {
		t.Errorf("expected nested list, got %+v", list.List[2])
	}
}

func TestParse_EmptyList(t *testing.T) {
	tmpl, err := ParseString(t.Context(), `<[]>`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	list := tmpl.Nodes[0].Emit.Expr
	if list.Op != OpList || len(list.List) != 0 {
		t.Errorf("expected empty list, got %+v", list)
	}
}

func TestParse_StringEscapes(t *testing.T) {
	tmpl, err := ParseString(t.Context(), `<"a\nb\t\"c\"">`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	str := tmpl.Nodes[0].Emit.Expr
	if str.Str != "a\nb\t\"c\"" {
		t.Errorf("unexpected string %q", str.Str)
	}
}

func TestParse_UnterminatedString(t *testing.T) {
	_, err := ParseString(t.Context(), `<"oops>`)
	if !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestParse_UnclosedExpression(t *testing.T) {
	_, err := ParseString(t.Context(), `<names`)
	if !errors.Is(err, ErrUnclosedExpr) {
		t.Errorf("expected ErrUnclosedExpr, got %v", err)
	}
}

func TestParse_UnclosedSubtemplate(t *testing.T) {
	_, err := ParseString(t.Context(), `<names:{n|<n>`)
	if !errors.Is(err, ErrUnclosedTemplate) {
		t.Errorf("expected ErrUnclosedTemplate, got %v", err)
	}
}

func TestParse_AnonymousSubtemplateFormal(t *testing.T) {
	tmpl, err := ParseString(t.Context(), `<names:{n|<n>}>`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	apply := tmpl.Nodes[0].Emit.Expr
	if apply.Op != OpApply || apply.Body == nil {
		t.Fatalf("expected anonymous application, got %+v", apply)
	}

	if apply.Body.Formal() != "n" {
		t.Errorf("expected formal 'n', got %q", apply.Body.Formal())
	}
}

func TestParse_SubtemplateImplicitFormal(t *testing.T) {
	tmpl, err := ParseString(t.Context(), `<names:{<it>}>`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	body := tmpl.Nodes[0].Emit.Expr.Body
	if body.Formal() != ImplicitParam {
		t.Errorf("expected implicit formal, got %q", body.Formal())
	}
}

func TestParse_NamedReference(t *testing.T) {
	tmpl, err := ParseString(t.Context(), `<names:bold()>`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	apply := tmpl.Nodes[0].Emit.Expr
	if apply.Op != OpApply || apply.Body != nil || apply.Name != "bold" {
		t.Errorf("expected named reference, got %+v", apply)
	}
}

func TestParse_BuiltinCall(t *testing.T) {
	tmpl, err := ParseString(t.Context(), `<first(names)>`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	call := tmpl.Nodes[0].Emit.Expr
	if call.Op != OpBuiltin || call.Name != "first" {
		t.Fatalf("expected builtin call, got %+v", call)
	}

	if call.Sub == nil || call.Sub.Op != OpAttr {
		t.Errorf("unexpected operand %+v", call.Sub)
	}
}

func TestParse_BuiltinNameAsAttr(t *testing.T) {
	// A builtin name without parentheses is a plain attribute reference.
	tmpl, err := ParseString(t.Context(), `<first>`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if tmpl.Nodes[0].Emit.Expr.Op != OpAttr {
		t.Errorf("expected attribute, got %+v", tmpl.Nodes[0].Emit.Expr)
	}
}

func TestParse_Conditional(t *testing.T) {
	tmpl, err := ParseString(
		t.Context(), `<if(x)>then<else>alt<endif>`,
	)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if len(tmpl.Nodes) != 1 || tmpl.Nodes[0].Kind != NodeCond {
		t.Fatalf("expected one conditional node, got %+v", tmpl.Nodes)
	}

	cond := tmpl.Nodes[0].Cond
	if cond.Source != "x" || cond.Program == nil {
		t.Errorf("unexpected condition %+v", cond)
	}

	if len(cond.Then) != 1 || cond.Then[0].Text != "then" {
		t.Errorf("unexpected then branch %+v", cond.Then)
	}

	if len(cond.Else) != 1 || cond.Else[0].Text != "alt" {
		t.Errorf("unexpected else branch %+v", cond.Else)
	}
}

func TestParse_NestedConditional(t *testing.T) {
	tmpl, err := ParseString(
		t.Context(),
		`<if(a)><if(b)>ab<endif><else>z<endif>`,
	)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	outer := tmpl.Nodes[0].Cond
	if len(outer.Then) != 1 || outer.Then[0].Kind != NodeCond {
		t.Errorf("expected nested conditional in then, got %+v", outer.Then)
	}
}

func TestParse_MissingEndif(t *testing.T) {
	_, err := ParseString(t.Context(), `<if(x)>dangling`)
	if !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestParse_StrayEndif(t *testing.T) {
	_, err := ParseString(t.Context(), `text<endif>`)
	if !errors.Is(err, ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestParse_InvalidCondition(t *testing.T) {
	_, err := ParseString(t.Context(), `<if(a ++)>x<endif>`)
	if !errors.Is(err, ErrCondCompile) {
		t.Errorf("expected ErrCondCompile, got %v", err)
	}
}

func TestParse_ConditionWithNestedParens(t *testing.T) {
	tmpl, err := ParseString(
		t.Context(), `<if(len(xs) > 0)>y<endif>`,
	)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if tmpl.Nodes[0].Cond.Source != "len(xs) > 0" {
		t.Errorf("unexpected source %q", tmpl.Nodes[0].Cond.Source)
	}
}

func TestParse_SubtemplateBodyWithBraces(t *testing.T) {
	tmpl, err := ParseString(t.Context(), `<names:{n|{<n>}}>`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	body := tmpl.Nodes[0].Emit.Expr.Body
	if len(body.Nodes) != 3 {
		t.Fatalf("expected 3 body nodes, got %+v", body.Nodes)
	}

	if body.Nodes[0].Text != "{" || body.Nodes[2].Text != "}" {
		t.Errorf("braces should survive in body text: %+v", body.Nodes)
	}
}

func TestParse_ChainedApplication(t *testing.T) {
	tmpl, err := ParseString(t.Context(), `<a:{x|<x>}:{y|<y>}>`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	outer := tmpl.Nodes[0].Emit.Expr
	if outer.Op != OpApply || outer.Sub.Op != OpApply {
		t.Errorf("expected nested applications, got %+v", outer)
	}
}

func TestParse_MultilineTracksPosition(t *testing.T) {
	_, err := ParseString(t.Context(), "line one\nline two <\"x")
	if err == nil {
		t.Fatal("expected parse error")
	}

	// The failure is on line 2; the error carries position attributes.
	if !strings.Contains(err.Error(), ErrParse.Error()) {
		t.Errorf("unexpected error %v", err)
	}
}

func TestParseReader(t *testing.T) {
	tmpl, err := ParseReader(
		t.Context(), strings.NewReader(`<name>`),
	)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if len(tmpl.Nodes) != 1 || tmpl.Nodes[0].Kind != NodeEmit {
		t.Errorf("unexpected nodes %+v", tmpl.Nodes)
	}
}
