package lang

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Group is a named collection of compiled templates. Applications of the
// form "expr:name()" resolve name through the group configured for the
// render.
//
// Define and Lookup are safe for concurrent use.
type Group struct {
	mu    sync.RWMutex
	names []string
	defs  map[string]*Template
}

// NewGroup creates an empty template group.
func NewGroup() *Group {
	return &Group{
		defs: make(map[string]*Template),
	}
}

// Define registers a template under its name, replacing any previous
// definition. The template is stored as given; compiled trees may be
// shared across groups and goroutines, so Define never writes into one.
func (g *Group) Define(name string, t *Template) *Group {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.defs[name]; !ok {
		g.names = append(g.names, name)
	}

	g.defs[name] = t

	return g
}

// Lookup returns the template defined under name.
func (g *Group) Lookup(name string) (*Template, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, ok := g.defs[name]

	return t, ok
}

// Names returns the defined template names in definition order.
func (g *Group) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]string, len(g.names))
	copy(out, g.names)

	return out
}

// ParseGroup compiles a group definition file.
//
// A group file is a sequence of definitions of either form:
//
//	name(param, ...) ::= <<
//	multi-line body
//	>>
//
//	name(param, ...) ::= "single-line body"
//
// Line comments begin with "//". One newline immediately after "<<" and
// one immediately before ">>" are stripped from the body.
func ParseGroup(
	ctx context.Context,
	source string,
	opts ...Option,
) (*Group, error) {
	cfg := makeConfig(opts...)

	p := &parser{
		input: []byte(source),
		line:  1,
		col:   1,
		cfg:   cfg,
	}

	group := NewGroup()

	for {
		p.skipGroupVoid()

		if p.eof() {
			break
		}

		name, params, err := p.parseSignature()
		if err != nil {
			return nil, err
		}

		body, err := p.parseDefinitionBody()
		if err != nil {
			return nil, WrapError(err).
				With(slog.String("template", name))
		}

		t, err := parseTemplate(ctx, body, cfg)
		if err != nil {
			return nil, WrapError(err).
				With(slog.String("template", name))
		}

		// Name and Params are fixed here, before the template is
		// published anywhere; it is immutable from now on.
		t.Name = name
		t.Params = params

		group.Define(name, t)

		cfg.logger.TraceContext(
			ctx,
			"template defined",
			slog.String("template", name),
			slog.Int("param_count", len(params)),
		)
	}

	return group, nil
}

// ParseGroupReader compiles a group definition file from a stream.
func ParseGroupReader(
	ctx context.Context,
	r io.Reader,
	opts ...Option,
) (*Group, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrReadInput.Wrap(err)
	}

	return ParseGroup(ctx, string(data), opts...)
}

// skipGroupVoid consumes whitespace and line comments between definitions.
func (p *parser) skipGroupVoid() {
	for {
		p.skipSpaces()

		if p.peekN(2) != "//" {
			return
		}

		for !p.eof() && p.peek() != '\n' {
			p.advance()
		}
	}
}

// parseSignature parses: name '(' (param (',' param)*)? ')' "::=".
func (p *parser) parseSignature() (string, []string, error) {
	name, err := p.parseIdentifier()
	if err != nil {
		return "", nil, ErrGroupSyntax.Wrap(err).WithPosition(p.position())
	}

	p.skipSpaces()

	if !p.expect('(') {
		return "", nil, ErrGroupSyntax.WithPosition(p.position()).
			With(slog.String("expected", "(")).
			With(slog.String("template", name))
	}

	var params []string

	p.skipSpaces()

	for p.peek() != ')' {
		param, err := p.parseIdentifier()
		if err != nil {
			return "", nil, ErrGroupSyntax.Wrap(err).
				WithPosition(p.position()).
				With(slog.String("template", name))
		}

		params = append(params, param)

		p.skipSpaces()

		if p.peek() == ',' {
			p.advance()
			p.skipSpaces()
		}
	}

	p.advance() // skip ')'
	p.skipSpaces()

	if p.peekN(3) != "::=" {
		return "", nil, ErrGroupSyntax.WithPosition(p.position()).
			With(slog.String("expected", "::=")).
			With(slog.String("template", name))
	}

	for range 3 {
		p.advance()
	}

	return name, params, nil
}

// parseDefinitionBody parses either a quoted single-line body or a
// "<<" ... ">>" block body.
func (p *parser) parseDefinitionBody() (string, error) {
	p.skipSpaces()

	if p.peek() == '"' {
		expr, err := p.parseString()
		if err != nil {
			return "", err
		}

		return expr.Str, nil
	}

	if p.peekN(2) != "<<" {
		return "", ErrGroupSyntax.WithPosition(p.position()).
			With(slog.String("expected", `<< or "`))
	}

	p.advance()
	p.advance()

	start := p.pos

	for !p.eof() {
		if p.peekN(2) == ">>" {
			body := string(p.input[start:p.pos])

			p.advance()
			p.advance()

			body = strings.TrimPrefix(body, "\n")
			body = strings.TrimSuffix(body, "\n")

			return body, nil
		}

		p.advance()
	}

	return "", ErrGroupSyntax.WithPosition(p.position()).
		With(slog.String("expected", ">>"))
}
