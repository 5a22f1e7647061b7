package formula

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Formula is a compiled formula ready to be evaluated against many rows.
type Formula struct {
	text string
	root node
}

func (f *Formula) String() string { return f.text }

// Eval evaluates the formula against one scope.
func (f *Formula) Eval(s *Scope) (decimal.Decimal, error) {
	return f.root.eval(s)
}

// Compile tokenizes and parses a formula. A leading '=' is accepted and
// ignored.
func Compile(text string) (*Formula, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "="))
	if trimmed == "" {
		return nil, ErrEmptyFormula
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}

	p := &parser{src: trimmed, tokens: tokens}
	root, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.typ != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %s %q at position %d", ErrSyntax, tok.typ, tok.text, tok.pos)
	}
	return &Formula{text: text, root: root}, nil
}

type parser struct {
	src    string
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	if p.pos >= len(p.tokens) {
		return token{typ: tokEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.tokens) {
		return token{typ: tokEOF}
	}
	return p.tokens[p.pos+offset]
}

func (p *parser) advance() token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ tokenType) (token, error) {
	tok := p.peek()
	if tok.typ != typ {
		return token{}, fmt.Errorf("%w: expected %s, found %s at position %d", ErrSyntax, typ, tok.typ, tok.pos)
	}
	p.pos++
	return tok, nil
}

func (p *parser) parseExpression() (node, error) {
	return p.parseComparison()
}

// parseComparison handles the lowest precedence level. Comparisons do not
// chain: "a < b < c" is a syntax error.
func (p *parser) parseComparison() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.peek().typ != tokCompare {
		return left, nil
	}
	op := p.advance().text
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &compareNode{op: op, left: left, right: right}, nil
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		typ := p.peek().typ
		if typ != tokPlus && typ != tokMinus {
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: typ, left: left, right: right}
	}
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		typ := p.peek().typ
		if typ != tokStar && typ != tokSlash {
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: typ, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	switch p.peek().typ {
	case tokMinus:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &negateNode{operand: operand}, nil
	case tokPlus:
		p.advance()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.peek()
	switch tok.typ {
	case tokNumber:
		p.advance()
		value, err := decimal.NewFromString(tok.text)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number %q", ErrSyntax, tok.text)
		}
		return &numberNode{value: value}, nil
	case tokLParen:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case tokIdent:
		return p.parseIdentifier()
	case tokEOF:
		return nil, fmt.Errorf("%w: unexpected end of formula", ErrSyntax)
	}
	return nil, fmt.Errorf("%w: unexpected %s %q at position %d", ErrSyntax, tok.typ, tok.text, tok.pos)
}

// parseIdentifier covers column references, TRUE/FALSE, function calls and
// cross-worksheet terms. Worksheet names may contain spaces and numbers, which
// the lexer splits into consecutive tokens.
func (p *parser) parseIdentifier() (node, error) {
	if n := sheetNameLength(p.peekAt); n > 0 {
		return p.parseSheetReference(n)
	}
	words := 0
	for p.peekAt(words).typ == tokIdent {
		words++
	}
	if words > 1 {
		extra := p.peekAt(1)
		return nil, fmt.Errorf("%w: unexpected identifier %q at position %d", ErrSyntax, extra.text, extra.pos)
	}

	tok := p.advance()
	name := strings.ToUpper(tok.text)

	if p.peek().typ == tokLParen {
		if name == "IF" {
			return p.parseIf()
		}
		if fn, ok := parseAggregate(name); ok {
			key, err := p.parseColumnArgument()
			if err != nil {
				return nil, err
			}
			return &aggregateNode{fn: fn, key: key}, nil
		}
		return nil, fmt.Errorf("%w: unsupported function %s at position %d", ErrSyntax, tok.text, tok.pos)
	}

	switch name {
	case "TRUE":
		return &numberNode{value: one}, nil
	case "FALSE":
		return &numberNode{value: decimal.Zero}, nil
	}
	if IsReserved(name) {
		return nil, fmt.Errorf("%w: keyword %s used as a value at position %d", ErrSyntax, tok.text, tok.pos)
	}
	return &columnNode{key: tok.text}, nil
}

func (p *parser) parseIf() (node, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokComma); err != nil {
		return nil, err
	}
	then, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokComma); err != nil {
		return nil, err
	}
	otherwise, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	return &ifNode{cond: cond, then: then, otherwise: otherwise}, nil
}

// parseColumnArgument reads "(column_key)".
func (p *parser) parseColumnArgument() (string, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return "", err
	}
	ident, err := p.expect(tokIdent)
	if err != nil {
		return "", err
	}
	if _, err := p.expect(tokRParen); err != nil {
		return "", err
	}
	return ident.text, nil
}

func (p *parser) parseSheetReference(words int) (node, error) {
	sheet := sheetName(p.src, p.tokens[p.pos:p.pos+words])
	p.pos += words
	p.advance() // dot

	member, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	if fn, ok := parseAggregate(member.text); ok {
		key, err := p.parseColumnArgument()
		if err != nil {
			return nil, err
		}
		return &sheetNode{sheet: sheet, fn: fn, key: key}, nil
	}
	if prop, ok := parseSheetProperty(member.text); ok {
		return &sheetNode{sheet: sheet, prop: prop}, nil
	}
	return nil, fmt.Errorf("%w: unknown worksheet member %q at position %d", ErrSyntax, member.text, member.pos)
}
