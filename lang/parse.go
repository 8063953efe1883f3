package lang

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseString compiles template source text into an immutable [Template].
//
// Template source is literal text with embedded expressions delimited by
// '<' and '>'. See the package documentation for the grammar. The result is
// cached for efficient repeated compilation of the same content when no
// options are used.
func ParseString(
	ctx context.Context,
	source string,
	opts ...Option,
) (*Template, error) {
	cfg := makeConfig(opts...)

	cfg.logger.TraceContext(
		ctx,
		"parse start",
		slog.Int("source_length", len(source)),
	)

	if len(opts) == 0 {
		return parseStringCached(ctx, source)
	}

	return parseTemplate(ctx, source, cfg)
}

// parseTemplate is the internal parsing implementation.
func parseTemplate(
	ctx context.Context,
	source string,
	cfg config,
) (*Template, error) {
	p := &parser{
		input: []byte(source),
		line:  1,
		col:   1,
		cfg:   cfg,
	}

	nodes, stop, err := p.parseNodes(ctx)
	if err != nil {
		return nil, err
	}

	if stop != "" {
		return nil, ErrParse.WithPosition(p.position()).
			With(slog.String("unexpected", "<"+stop+">"))
	}

	cfg.logger.TraceContext(
		ctx,
		"parse complete",
		slog.Int("node_count", len(nodes)),
	)

	return &Template{Nodes: nodes}, nil
}

// parser holds the parser state.
type parser struct {
	input []byte
	pos   int
	line  int
	col   int
	depth int
	cfg   config
}

// Region keywords recognized at an expression opener.
const (
	kwIf    = "if"
	kwElse  = "else"
	kwEndif = "endif"
)

// parseNodes parses template body nodes until EOF or a region keyword
// (<else> or <endif>) owned by an enclosing conditional. The keyword that
// stopped the parse is returned, or "" at EOF.
func (p *parser) parseNodes(ctx context.Context) ([]Node, string, error) {
	nodes := make([]Node, 0)

	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			nodes = append(nodes, Node{Kind: NodeText, Text: text.String()})
			text.Reset()
		}
	}

	for !p.eof() {
		ch := p.peek()

		// Backslash escapes the next rune in literal text.
		if ch == '\\' {
			p.advance()

			if !p.eof() {
				text.WriteRune(p.peek())
				p.advance()
			}

			continue
		}

		if ch != '<' {
			text.WriteRune(ch)
			p.advance()

			continue
		}

		// Region keywords terminate this node list; the enclosing
		// conditional consumes them.
		if p.peekKeyword(kwElse) || p.peekKeyword(kwEndif) {
			flush()

			kw := p.consumeKeyword()

			return nodes, kw, nil
		}

		if p.peekIf() {
			flush()

			cond, err := p.parseCond(ctx)
			if err != nil {
				return nil, "", err
			}

			nodes = append(nodes, Node{Kind: NodeCond, Cond: cond})

			continue
		}

		flush()

		emit, err := p.parseEmit(ctx)
		if err != nil {
			return nil, "", err
		}

		nodes = append(nodes, Node{Kind: NodeEmit, Emit: emit})
	}

	flush()

	return nodes, "", nil
}

// peekKeyword reports whether the cursor sits on "<kw>".
func (p *parser) peekKeyword(kw string) bool {
	return p.peekN(len(kw)+2) == "<"+kw+">"
}

// consumeKeyword consumes "<kw>" and returns kw.
func (p *parser) consumeKeyword() string {
	start := p.pos

	p.advance() // skip '<'

	for !p.eof() && p.peek() != '>' {
		p.advance()
	}

	if !p.eof() {
		p.advance() // skip '>'
	}

	return strings.Trim(string(p.input[start:p.pos]), "<>")
}

// peekIf reports whether the cursor sits on "<if(".
func (p *parser) peekIf() bool {
	return p.peekN(len(kwIf)+2) == "<"+kwIf+"("
}

// parseCond parses: "<if(" condition ")>" Then ("<else>" Else)? "<endif>".
func (p *parser) parseCond(ctx context.Context) (*Cond, error) {
	pos := p.position()

	// Skip "<if"
	for range len(kwIf) + 1 {
		p.advance()
	}

	source, err := p.captureBalanced('(', ')')
	if err != nil {
		return nil, err
	}

	if !p.expect('>') {
		return nil, ErrParse.WithPosition(p.position()).
			With(slog.String("expected", ">"))
	}

	program, err := compileCond(source)
	if err != nil {
		return nil, WrapError(err).WithPosition(pos)
	}

	cond := &Cond{
		Source:  source,
		Program: program,
	}

	cond.Then, err = p.parseRegion(ctx, cond)
	if err != nil {
		return nil, err
	}

	return cond, nil
}

// parseRegion parses the then/else node lists of a conditional through its
// closing <endif>.
func (p *parser) parseRegion(ctx context.Context, cond *Cond) ([]Node, error) {
	then, stop, err := p.parseNodes(ctx)
	if err != nil {
		return nil, err
	}

	switch stop {
	case kwEndif:
		return then, nil

	case kwElse:
		var alt []Node

		alt, stop, err = p.parseNodes(ctx)
		if err != nil {
			return nil, err
		}

		if stop != kwEndif {
			return nil, ErrParse.WithPosition(p.position()).
				With(slog.String("expected", "<endif>"))
		}

		cond.Else = alt

		return then, nil

	default:
		return nil, ErrParse.WithPosition(p.position()).
			With(slog.String("expected", "<endif>"))
	}
}

// parseEmit parses: '<' element (';' "separator" '=' element)? '>'.
func (p *parser) parseEmit(ctx context.Context) (*Emit, error) {
	p.advance() // skip '<'
	p.skipSpaces()

	expr, err := p.parseElement(ctx)
	if err != nil {
		return nil, err
	}

	emit := &Emit{Expr: expr}

	p.skipSpaces()

	if p.peek() == ';' {
		p.advance()
		p.skipSpaces()

		name, err := p.parseIdentifier()
		if err != nil {
			return nil, err
		}

		if name != "separator" {
			return nil, ErrParse.WithPosition(p.position()).
				With(slog.String("option", name)).
				With(slog.String("issue", "unknown option"))
		}

		p.skipSpaces()

		if !p.expect('=') {
			return nil, ErrParse.WithPosition(p.position()).
				With(slog.String("expected", "="))
		}

		p.skipSpaces()

		emit.Sep, err = p.parseElement(ctx)
		if err != nil {
			return nil, err
		}

		p.skipSpaces()
	}

	if !p.expect('>') {
		return nil, ErrUnclosedExpr.WithPosition(p.position())
	}

	return emit, nil
}

// parseElement parses an element expression with any chained template
// applications: unary (':' subtemplate)*.
func (p *parser) parseElement(ctx context.Context) (*Expr, error) {
	expr, err := p.parseUnary(ctx)
	if err != nil {
		return nil, err
	}

	for {
		p.skipSpaces()

		if p.peek() != ':' {
			return expr, nil
		}

		p.advance()
		p.skipSpaces()

		expr, err = p.parseApply(ctx, expr)
		if err != nil {
			return nil, err
		}
	}
}

// parseApply parses the target of a template application: either an
// anonymous subtemplate or a named template reference "name()". The body of
// a named reference is resolved through the group at evaluation time.
func (p *parser) parseApply(
	ctx context.Context,
	source *Expr,
) (*Expr, error) {
	if p.peek() == '{' {
		body, err := p.parseSubtemplate(ctx)
		if err != nil {
			return nil, err
		}

		return &Expr{Op: OpApply, Sub: source, Body: body}, nil
	}

	name, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}

	if !p.expect('(') || !p.expect(')') {
		return nil, ErrParse.WithPosition(p.position()).
			With(slog.String("expected", "()")).
			With(slog.String("template", name))
	}

	return &Expr{Op: OpApply, Sub: source, Name: name}, nil
}

// parseUnary parses a primary element expression.
func (p *parser) parseUnary(ctx context.Context) (*Expr, error) {
	switch ch := p.peek(); {
	case ch == '[':
		return p.parseList(ctx)

	case ch == '"':
		return p.parseString()

	case ch == '{':
		body, err := p.parseSubtemplate(ctx)
		if err != nil {
			return nil, err
		}

		return &Expr{Op: OpInline, Body: body}, nil

	case isIdentifierStart(ch):
		return p.parseNameExpr(ctx)

	default:
		return nil, ErrParse.WithPosition(p.position()).
			With(slog.String("expected", "element expression"))
	}
}

// parseList parses: '[' (element (',' element)*)? ']'.
func (p *parser) parseList(ctx context.Context) (*Expr, error) {
	if p.depth >= p.cfg.maxDepth {
		return nil, ErrMaxDepthExceeded.WithPosition(p.position()).
			With(slog.Int("max_depth", p.cfg.maxDepth))
	}

	p.depth++
	defer func() { p.depth-- }()

	p.advance() // skip '['

	list := &Expr{Op: OpList}

	p.skipSpaces()

	if p.peek() == ']' {
		p.advance()

		return list, nil
	}

	for {
		elem, err := p.parseElement(ctx)
		if err != nil {
			return nil, err
		}

		list.List = append(list.List, elem)

		p.skipSpaces()

		switch p.peek() {
		case ',':
			p.advance()
			p.skipSpaces()

		case ']':
			p.advance()

			return list, nil

		default:
			return nil, ErrParse.WithPosition(p.position()).
				With(slog.String("expected", ", or ]"))
		}
	}
}

// parseString parses a double-quoted literal with backslash escapes.
func (p *parser) parseString() (*Expr, error) {
	p.advance() // skip opening quote

	var text strings.Builder

	for !p.eof() {
		ch := p.peek()

		switch ch {
		case '\\':
			p.advance()

			if p.eof() {
				break
			}

			switch esc := p.peek(); esc {
			case 'n':
				text.WriteRune('\n')
			case 't':
				text.WriteRune('\t')
			default:
				text.WriteRune(esc)
			}

			p.advance()

		case '"':
			p.advance()

			return &Expr{Op: OpString, Str: text.String()}, nil

		default:
			text.WriteRune(ch)
			p.advance()
		}
	}

	return nil, ErrParse.WithPosition(p.position()).
		With(slog.String("issue", "unterminated string"))
}

// parseNameExpr parses an identifier: a builtin invocation when the name is
// a registered builtin followed by '(', otherwise an attribute reference.
func (p *parser) parseNameExpr(ctx context.Context) (*Expr, error) {
	name, err := p.parseIdentifier()
	if err != nil {
		return nil, err
	}

	if _, ok := builtins[name]; ok && p.peek() == '(' {
		p.advance()
		p.skipSpaces()

		operand, err := p.parseElement(ctx)
		if err != nil {
			return nil, err
		}

		p.skipSpaces()

		if !p.expect(')') {
			return nil, ErrParse.WithPosition(p.position()).
				With(slog.String("expected", ")")).
				With(slog.String("builtin", name))
		}

		return &Expr{Op: OpBuiltin, Name: name, Sub: operand}, nil
	}

	return &Expr{Op: OpAttr, Name: name}, nil
}

// parseSubtemplate parses: '{' (formal '|')? body '}' and compiles the
// captured body recursively.
func (p *parser) parseSubtemplate(ctx context.Context) (*Template, error) {
	if p.depth >= p.cfg.maxDepth {
		return nil, ErrMaxDepthExceeded.WithPosition(p.position()).
			With(slog.Int("max_depth", p.cfg.maxDepth))
	}

	pos := p.position()

	p.advance() // skip '{'

	var params []string

	if formal, ok := p.scanFormal(); ok {
		params = []string{formal}
	}

	body, err := p.captureSubtemplateBody()
	if err != nil {
		return nil, err
	}

	sub := &parser{
		input: []byte(body),
		line:  pos.Line,
		col:   pos.Column,
		depth: p.depth + 1,
		cfg:   p.cfg,
	}

	nodes, stop, err := sub.parseNodes(ctx)
	if err != nil {
		return nil, err
	}

	if stop != "" {
		return nil, ErrParse.WithPosition(pos).
			With(slog.String("unexpected", "<"+stop+">"))
	}

	return &Template{Params: params, Nodes: nodes}, nil
}

// scanFormal consumes "ident |" at the cursor if present, returning the
// declared formal parameter name.
func (p *parser) scanFormal() (string, bool) {
	saved := *p

	if !isIdentifierStart(p.peek()) {
		return "", false
	}

	name, err := p.parseIdentifier()
	if err != nil {
		*p = saved

		return "", false
	}

	p.skipSpaces()

	if p.peek() != '|' {
		*p = saved

		return "", false
	}

	p.advance()

	return name, true
}

// captureSubtemplateBody captures raw body text through the matching '}'.
// Braces nest; string literals inside embedded expressions are skipped so
// delimiters within them don't count.
func (p *parser) captureSubtemplateBody() (string, error) {
	start := p.pos
	braces := 0
	angles := 0

	for !p.eof() {
		ch := p.peek()

		switch {
		case ch == '\\':
			p.advance()

			if !p.eof() {
				p.advance()
			}

			continue

		case angles > 0 && ch == '"':
			err := p.skipString()
			if err != nil {
				return "", err
			}

			continue

		case ch == '<':
			angles++

		case ch == '>':
			if angles > 0 {
				angles--
			}

		case ch == '{':
			braces++

		case ch == '}':
			if braces == 0 {
				body := string(p.input[start:p.pos])
				p.advance() // skip '}'

				return body, nil
			}

			braces--
		}

		p.advance()
	}

	return "", ErrUnclosedTemplate.WithPosition(p.position())
}

// captureBalanced consumes text between open and close delimiters, tracking
// nesting and skipping string literals. The cursor must sit on open.
func (p *parser) captureBalanced(open, close rune) (string, error) {
	if !p.expect(open) {
		return "", ErrParse.WithPosition(p.position()).
			With(slog.String("expected", string(open)))
	}

	start := p.pos
	depth := 0

	for !p.eof() {
		ch := p.peek()

		switch ch {
		case '"', '\'':
			err := p.skipString()
			if err != nil {
				return "", err
			}

			continue

		case open:
			depth++

		case close:
			if depth == 0 {
				source := string(p.input[start:p.pos])
				p.advance() // skip close

				return source, nil
			}

			depth--
		}

		p.advance()
	}

	return "", ErrParse.WithPosition(p.position()).
		With(slog.String("expected", string(close)))
}

// parseIdentifier parses an identifier token.
func (p *parser) parseIdentifier() (string, error) {
	start := p.pos

	if !isIdentifierStart(p.peek()) {
		return "", ErrParse.WithPosition(p.position()).
			With(slog.String("expected", "identifier"))
	}

	p.advance()

	for !p.eof() && isIdentifierContinue(p.peek()) {
		p.advance()
	}

	return string(p.input[start:p.pos]), nil
}

// Helper methods

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}

	r, _ := utf8.DecodeRune(p.input[p.pos:])

	return r
}

func (p *parser) peekN(n int) string {
	if p.pos+n > len(p.input) {
		return string(p.input[p.pos:])
	}

	return string(p.input[p.pos : p.pos+n])
}

func (p *parser) advance() {
	if p.eof() {
		return
	}

	r, size := utf8.DecodeRune(p.input[p.pos:])

	p.pos += size
	if r == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
}

func (p *parser) expect(ch rune) bool {
	if p.peek() == ch {
		p.advance()

		return true
	}

	return false
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) position() Position {
	return Position{
		Offset: p.pos,
		Line:   p.line,
		Column: p.col,
	}
}

func (p *parser) skipSpaces() {
	for !p.eof() && unicode.IsSpace(p.peek()) {
		p.advance()
	}
}

// skipString consumes a quoted string literal at the cursor, honoring
// backslash escapes.
func (p *parser) skipString() error {
	quote := p.peek()

	p.advance() // skip opening quote

	for !p.eof() {
		ch := p.peek()
		if ch == '\\' {
			p.advance() // skip backslash

			if !p.eof() {
				p.advance() // skip escaped char
			}

			continue
		}

		if ch == quote {
			p.advance() // skip closing quote

			return nil
		}

		p.advance()
	}

	return ErrParse.WithPosition(p.position()).
		With(slog.String("issue", "unterminated string"))
}

// Character classification

func isIdentifierStart(r rune) bool {
	return unicode.In(r,
		unicode.L,  // Letter
		unicode.Nl, // Letter, Number
		unicode.Other_ID_Start,
	) || r == '_'
}

func isIdentifierContinue(r rune) bool {
	return unicode.In(r,
		unicode.L,  // Letter
		unicode.Nl, // Letter, Number
		unicode.Other_ID_Start,
		unicode.Mn, // Mark, Nonspacing
		unicode.Mc, // Mark, Spacing Combining
		unicode.Nd, // Number, Decimal Digit
		unicode.Pc, // Punctuation, Connector
		unicode.Other_ID_Continue,
	)
}
