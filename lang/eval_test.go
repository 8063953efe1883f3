package lang

import (
	"errors"
	"strings"
	"testing"
)

// render is a test helper: parse source, render against scope.
func render(
	t *testing.T,
	source string,
	scope *Scope,
	opts ...Option,
) string {
	t.Helper()

	tmpl, err := ParseString(t.Context(), source, opts...)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	out, err := tmpl.Render(t.Context(), scope, opts...)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	return out
}

func phonebookScope() *Scope {
	return NewScope().
		Add("names", "Ter", "Tom").
		Add("phones", 1, 2)
}

func TestRender_ListConcatenation(t *testing.T) {
	out := render(t, `<[names,phones]>`, phonebookScope())
	if out != "TerTom12" {
		t.Errorf("expected 'TerTom12', got %q", out)
	}
}

func TestRender_ListWithSeparator(t *testing.T) {
	out := render(t, `<[names,phones]; separator=", ">`, phonebookScope())
	if out != "Ter, Tom, 1, 2" {
		t.Errorf("expected 'Ter, Tom, 1, 2', got %q", out)
	}
}

func TestRender_ListApplication(t *testing.T) {
	out := render(t, `<[names,phones]:{a|<a>.}>`, phonebookScope())
	if out != "Ter.Tom.1.2." {
		t.Errorf("expected 'Ter.Tom.1.2.', got %q", out)
	}
}

func TestRender_AbsentInApplicationSource(t *testing.T) {
	scope := NewScope().Add("phones", 1, 2)

	out := render(t, `<[names:{<it>!},"foo"]:{x}; separator=", ">`, scope)
	if out != "x" {
		t.Errorf("expected 'x', got %q", out)
	}
}

func TestRender_InlineApplicationInList(t *testing.T) {
	out := render(
		t,
		`<[names, ["foo","bar"]:{<it>!}, phones]; separator=", ">`,
		phonebookScope(),
	)
	if out != "Ter, Tom, foo!, bar!, 1, 2" {
		t.Errorf("expected 'Ter, Tom, foo!, bar!, 1, 2', got %q", out)
	}
}

func TestRender_ThreeAttributeConcatenation(t *testing.T) {
	scope := phonebookScope().Add("salaries", "big", "huge")

	out := render(t, `<[names,phones,salaries]; separator=", ">`, scope)
	if out != "Ter, Tom, 1, 2, big, huge" {
		t.Errorf("expected 'Ter, Tom, 1, 2, big, huge', got %q", out)
	}
}

func TestRender_LiteralText(t *testing.T) {
	out := render(t, `plain text, no expressions`, NewScope())
	if out != "plain text, no expressions" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestRender_EscapedDelimiter(t *testing.T) {
	out := render(t, `a \< b`, NewScope())
	if out != "a < b" {
		t.Errorf("expected 'a < b', got %q", out)
	}
}

func TestRender_UnboundAttributeIsEmpty(t *testing.T) {
	out := render(t, `[<missing>]`, NewScope())
	if out != "[]" {
		t.Errorf("expected '[]', got %q", out)
	}
}

func TestRender_SingleValuedAttribute(t *testing.T) {
	scope := NewScope().Add("name", "Ter")

	out := render(t, `hello <name>`, scope)
	if out != "hello Ter" {
		t.Errorf("expected 'hello Ter', got %q", out)
	}
}

func TestRender_MultiValuedAttributeConcatenates(t *testing.T) {
	scope := NewScope().Add("names", "a", "b", "c")

	out := render(t, `<names>`, scope)
	if out != "abc" {
		t.Errorf("expected 'abc', got %q", out)
	}
}

func TestRender_SeparatorOnAttribute(t *testing.T) {
	scope := NewScope().Add("names", "a", "b", "c")

	out := render(t, `<names; separator="-">`, scope)
	if out != "a-b-c" {
		t.Errorf("expected 'a-b-c', got %q", out)
	}
}

func TestRender_SeparatorSkipsEmptyFragments(t *testing.T) {
	scope := NewScope().Add("names", "a", "", "c")

	out := render(t, `<names; separator=", ">`, scope)
	if out != "a, c" {
		t.Errorf("expected 'a, c', got %q", out)
	}
}

func TestRender_EmptyElementStillOccupiesSlot(t *testing.T) {
	// The application is length-preserving even when an element renders
	// empty; the empty fragment then contributes no separator adjacency.
	scope := NewScope().Add("names", "a", "", "c")

	out := render(t, `<names:{n|[<n>]}; separator=" ">`, scope)
	if out != "[a] [] [c]" {
		t.Errorf("expected '[a] [] [c]', got %q", out)
	}
}

func TestRender_ScalarApplication(t *testing.T) {
	scope := NewScope().Add("name", "Ter")

	out := render(t, `<name:{n|Hi <n>!}>`, scope)
	if out != "Hi Ter!" {
		t.Errorf("expected 'Hi Ter!', got %q", out)
	}
}

func TestRender_ApplicationPreservesLengthAndOrder(t *testing.T) {
	scope := NewScope().Add("names", "v1", "v2", "v3", "v4")

	out := render(t, `<names:{v|(<v>)}>`, scope)
	if out != "(v1)(v2)(v3)(v4)" {
		t.Errorf("expected '(v1)(v2)(v3)(v4)', got %q", out)
	}
}

func TestRender_ImplicitParameter(t *testing.T) {
	scope := NewScope().Add("names", "a", "b")

	out := render(t, `<names:{<it><it>}>`, scope)
	if out != "aabb" {
		t.Errorf("expected 'aabb', got %q", out)
	}
}

func TestRender_IterationIndexAttributes(t *testing.T) {
	scope := NewScope().Add("names", "a", "b", "c")

	out := render(t, `<names:{n|<i0>:<n>}; separator=" ">`, scope)
	if out != "0:a 1:b 2:c" {
		t.Errorf("expected '0:a 1:b 2:c', got %q", out)
	}

	out = render(t, `<names:{n|<i>. <n>}; separator="; ">`, scope)
	if out != "1. a; 2. b; 3. c" {
		t.Errorf("expected '1. a; 2. b; 3. c', got %q", out)
	}
}

func TestRender_ChainedApplications(t *testing.T) {
	scope := NewScope().Add("names", "a", "b")

	out := render(t, `<names:{n|<n>!}:{x|[<x>]}>`, scope)
	if out != "[a!][b!]" {
		t.Errorf("expected '[a!][b!]', got %q", out)
	}
}

func TestRender_InlineSubtemplateEvaluatesOnce(t *testing.T) {
	// An anonymous subtemplate as a bare list element is one scalar: the
	// body renders once against the enclosing scope, not per outer item.
	scope := NewScope().Add("names", "a", "b")

	out := render(t, `<[names, {X}]; separator=",">`, scope)
	if out != "a,b,X" {
		t.Errorf("expected 'a,b,X', got %q", out)
	}
}

func TestRender_NamedTemplateFromGroup(t *testing.T) {
	group, err := ParseGroup(t.Context(), `bold(x) ::= "*<x>*"`)
	if err != nil {
		t.Fatalf("group parse error: %v", err)
	}

	scope := NewScope().Add("names", "a", "b")

	out := render(
		t, `<names:bold(); separator=" ">`, scope, WithGroup(group),
	)
	if out != "*a* *b*" {
		t.Errorf("expected '*a* *b*', got %q", out)
	}
}

func TestRender_NamedTemplateMissingFailsFast(t *testing.T) {
	scope := NewScope().Add("names", "a")

	tmpl, err := ParseString(t.Context(), `<names:nope()>`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	_, err = tmpl.Render(t.Context(), scope, WithGroup(NewGroup()))
	if !errors.Is(err, ErrUnresolvedBody) {
		t.Errorf("expected ErrUnresolvedBody, got %v", err)
	}

	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected wrapped ErrTemplateNotFound, got %v", err)
	}
}

func TestRender_NoGroupConfigured(t *testing.T) {
	scope := NewScope().Add("names", "a")

	tmpl, err := ParseString(t.Context(), `<names:nope()>`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	_, err = tmpl.Render(t.Context(), scope)
	if !errors.Is(err, ErrUnresolvedBody) {
		t.Errorf("expected ErrUnresolvedBody, got %v", err)
	}
}

func TestRender_ConditionalThen(t *testing.T) {
	scope := NewScope().Add("admin", true)

	out := render(t, `<if(admin)>yes<else>no<endif>`, scope)
	if out != "yes" {
		t.Errorf("expected 'yes', got %q", out)
	}
}

func TestRender_ConditionalElse(t *testing.T) {
	out := render(t, `<if(admin)>yes<else>no<endif>`, NewScope())
	if out != "no" {
		t.Errorf("expected 'no', got %q", out)
	}
}

func TestRender_ConditionalWithoutElse(t *testing.T) {
	out := render(t, `a<if(x)>-hidden-<endif>b`, NewScope())
	if out != "ab" {
		t.Errorf("expected 'ab', got %q", out)
	}
}

func TestRender_ConditionalExpression(t *testing.T) {
	scope := NewScope().Add("count", 3)

	out := render(t, `<if(count > 2)>many<else>few<endif>`, scope)
	if out != "many" {
		t.Errorf("expected 'many', got %q", out)
	}
}

func TestRender_ConditionalTruthiness(t *testing.T) {
	// Empty string, zero, and unbound names are all false.
	scope := NewScope().
		Add("empty", "").
		Add("zero", 0).
		Add("text", "x")

	for source, want := range map[string]string{
		`<if(empty)>t<else>f<endif>`:   "f",
		`<if(zero)>t<else>f<endif>`:    "f",
		`<if(text)>t<else>f<endif>`:    "t",
		`<if(missing)>t<else>f<endif>`: "f",
	} {
		if got := render(t, source, scope); got != want {
			t.Errorf("%s: expected %q, got %q", source, want, got)
		}
	}
}

func TestRender_NonKeywordAngleTextIsAttr(t *testing.T) {
	// "<elsewhere>" is an attribute emit, not a region keyword.
	scope := NewScope().Add("elsewhere", "there")

	out := render(t, `go <elsewhere>`, scope)
	if out != "go there" {
		t.Errorf("expected 'go there', got %q", out)
	}
}

func TestRender_MaxDepthExceeded(t *testing.T) {
	scope := NewScope().Add("x", "v")

	tmpl, err := ParseString(
		t.Context(), `<x:{a|<a:{b|<b>}>}>`, WithMaxDepth(1),
	)
	if err == nil {
		// Depth may trip at parse or eval time depending on nesting.
		_, err = tmpl.Render(t.Context(), scope, WithMaxDepth(1))
	}

	if !errors.Is(err, ErrMaxDepthExceeded) {
		t.Errorf("expected ErrMaxDepthExceeded, got %v", err)
	}
}

func TestEvaluateList_FlatteningAssociativity(t *testing.T) {
	scope := phonebookScope()

	tmpl, err := ParseString(t.Context(), `<[names, [phones, names]]>`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	emit := tmpl.Nodes[0].Emit

	flat, err := EvaluateList(t.Context(), emit.Expr, scope)
	if err != nil {
		t.Fatalf("evaluate error: %v", err)
	}

	// names(2) + phones(2) + names(2), independent of nesting shape.
	if len(flat) != 6 {
		t.Fatalf("expected 6 items, got %d", len(flat))
	}

	want := []string{"Ter", "Tom", "1", "2", "Ter", "Tom"}
	for i, s := range flat.Strings() {
		if s != want[i] {
			t.Errorf("item %d: expected %q, got %q", i, want[i], s)
		}
	}
}

func TestEvaluateList_NestedLiteralEqualsInline(t *testing.T) {
	scope := phonebookScope()

	flatten := func(source string) []string {
		t.Helper()

		tmpl, err := ParseString(t.Context(), source)
		if err != nil {
			t.Fatalf("parse error: %v", err)
		}

		flat, err := EvaluateList(t.Context(), tmpl.Nodes[0].Emit.Expr, scope)
		if err != nil {
			t.Fatalf("evaluate error: %v", err)
		}

		return flat.Strings()
	}

	nested := flatten(`<[names, ["a", "b"], phones]>`)
	inline := flatten(`<[names, "a", "b", phones]>`)

	if strings.Join(nested, "\x00") != strings.Join(inline, "\x00") {
		t.Errorf("nested %v != inline %v", nested, inline)
	}
}

func TestEvaluateList_FlatSequenceRebinding(t *testing.T) {
	scope := phonebookScope()

	tmpl, err := ParseString(t.Context(), `<[names,phones]>`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	flat, err := EvaluateList(t.Context(), tmpl.Nodes[0].Emit.Expr, scope)
	if err != nil {
		t.Fatalf("evaluate error: %v", err)
	}

	// Bind the flat sequence as a new attribute and iterate it elsewhere:
	// same ordered items as rendering it directly.
	rebound := NewScope().Bind("all", flat.Value())

	direct := render(t, `<[names,phones]; separator=",">`, scope)
	indirect := render(t, `<all; separator=",">`, rebound)

	if direct != indirect {
		t.Errorf("direct %q != rebound %q", direct, indirect)
	}
}

func TestApplyTemplate_AbsentSource(t *testing.T) {
	tmpl, err := ParseString(t.Context(), `x`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	v, err := ApplyTemplate(t.Context(), tmpl, Absent(), NewScope())
	if err != nil {
		t.Fatalf("apply error: %v", err)
	}

	if v.Kind != KindAbsent {
		t.Errorf("expected absent result, got %v", v.Kind)
	}
}

func TestApplyTemplate_ScalarSource(t *testing.T) {
	tmpl, err := ParseString(t.Context(), `[<it>]`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	v, err := ApplyTemplate(
		t.Context(), tmpl, NewScalar("one"), NewScope(),
	)
	if err != nil {
		t.Fatalf("apply error: %v", err)
	}

	if v.Kind != KindSequence || len(v.Seq) != 1 {
		t.Fatalf("expected one-element sequence, got %+v", v)
	}

	if v.Seq[0].Text() != "[one]" {
		t.Errorf("expected '[one]', got %q", v.Seq[0].Text())
	}
}

func TestApplyTemplate_SequenceSource(t *testing.T) {
	tmpl, err := ParseString(t.Context(), `<it>!`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	source := NewSequence(NewScalar("a"), Absent(), NewScalar("c"))

	v, err := ApplyTemplate(t.Context(), tmpl, source, NewScope())
	if err != nil {
		t.Fatalf("apply error: %v", err)
	}

	if len(v.Seq) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(v.Seq))
	}

	if v.Seq[0].Text() != "a!" || v.Seq[2].Text() != "c!" {
		t.Errorf("unexpected applied elements: %+v", v.Seq)
	}

	// The absent element passes through uninstantiated.
	if v.Seq[1].Kind != KindAbsent {
		t.Errorf("expected absent passthrough, got %v", v.Seq[1].Kind)
	}
}

func TestFlatten_DropsAbsentPositions(t *testing.T) {
	v := NewSequence(
		NewScalar("a"),
		Absent(),
		NewSequence(NewScalar("b"), Absent()),
	)

	flat := Flatten(v)
	if len(flat) != 2 {
		t.Fatalf("expected 2 items, got %d", len(flat))
	}

	if flat[0].Text() != "a" || flat[1].Text() != "b" {
		t.Errorf("unexpected items: %v", flat.Strings())
	}
}

func TestRender_ConcurrentScopes(t *testing.T) {
	tmpl, err := ParseString(t.Context(), `<name>`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	done := make(chan error, 8)

	for i := range 8 {
		go func(n int) {
			scope := NewScope().Add("name", n)

			out, err := tmpl.Render(t.Context(), scope)
			if err == nil && out == "" {
				err = errors.New("empty render")
			}

			done <- err
		}(i)
	}

	for range 8 {
		if err := <-done; err != nil {
			t.Errorf("concurrent render: %v", err)
		}
	}
}

func TestWrite_StreamsRenderedText(t *testing.T) {
	tmpl, err := ParseString(t.Context(), `<names; separator="+">`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	var buf strings.Builder

	scope := NewScope().Add("names", "x", "y")

	err = tmpl.Write(t.Context(), &buf, scope)
	if err != nil {
		t.Fatalf("write error: %v", err)
	}

	if buf.String() != "x+y" {
		t.Errorf("expected 'x+y', got %q", buf.String())
	}
}
