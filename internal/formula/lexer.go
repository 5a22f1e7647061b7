package formula

import (
	"fmt"
	"strings"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCompare
	tokLParen
	tokRParen
	tokComma
	tokDot
)

func (t tokenType) String() string {
	switch t {
	case tokEOF:
		return "end of formula"
	case tokNumber:
		return "number"
	case tokIdent:
		return "identifier"
	case tokPlus:
		return "'+'"
	case tokMinus:
		return "'-'"
	case tokStar:
		return "'*'"
	case tokSlash:
		return "'/'"
	case tokCompare:
		return "comparison"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	case tokDot:
		return "'.'"
	default:
		return "token"
	}
}

type token struct {
	typ  tokenType
	text string
	pos  int
}

// tokenize splits a formula into tokens. On a bad character it returns the
// tokens read so far along with the error, which lets dependency extraction
// work on formulas that do not parse.
func tokenize(input string) ([]token, error) {
	l := lexer{src: input}
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.typ == tokEOF {
			return tokens, nil
		}
	}
}

type lexer struct {
	src  string
	pos  int
	prev tokenType
}

func (l *lexer) next() (token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.src) {
		return token{typ: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	ch := l.src[l.pos]

	var tok token
	switch {
	case isDigit(ch):
		tok = l.scanNumber()
	case ch == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) && !l.afterValue():
		tok = l.scanNumber()
	case isIdentStart(ch):
		tok = l.scanIdent()
	case ch == '+':
		l.pos++
		tok = token{typ: tokPlus, text: "+", pos: start}
	case ch == '-':
		l.pos++
		tok = token{typ: tokMinus, text: "-", pos: start}
	case ch == '*':
		l.pos++
		tok = token{typ: tokStar, text: "*", pos: start}
	case ch == '/':
		l.pos++
		tok = token{typ: tokSlash, text: "/", pos: start}
	case ch == '(':
		l.pos++
		tok = token{typ: tokLParen, text: "(", pos: start}
	case ch == ')':
		l.pos++
		tok = token{typ: tokRParen, text: ")", pos: start}
	case ch == ',':
		l.pos++
		tok = token{typ: tokComma, text: ",", pos: start}
	case ch == '.':
		l.pos++
		tok = token{typ: tokDot, text: ".", pos: start}
	case ch == '<' || ch == '>' || ch == '=' || ch == '!':
		var err error
		tok, err = l.scanCompare()
		if err != nil {
			return token{}, err
		}
	default:
		return token{}, fmt.Errorf("%w: unexpected character %q at position %d", ErrSyntax, ch, start)
	}
	l.prev = tok.typ
	return tok, nil
}

func (l *lexer) afterValue() bool {
	return l.prev == tokIdent || l.prev == tokNumber || l.prev == tokRParen
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *lexer) scanNumber() token {
	start := l.pos
	seenDot := false
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		if isDigit(ch) {
			l.pos++
			continue
		}
		if ch == '.' && !seenDot && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) {
			seenDot = true
			l.pos++
			continue
		}
		break
	}
	return token{typ: tokNumber, text: l.src[start:l.pos], pos: start}
}

func (l *lexer) scanIdent() token {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	return token{typ: tokIdent, text: l.src[start:l.pos], pos: start}
}

func (l *lexer) scanCompare() (token, error) {
	start := l.pos
	rest := l.src[l.pos:]
	for _, op := range []string{">=", "<=", "<>", "!=", "==", ">", "<", "="} {
		if strings.HasPrefix(rest, op) {
			l.pos += len(op)
			return token{typ: tokCompare, text: op, pos: start}, nil
		}
	}
	return token{}, fmt.Errorf("%w: unexpected character %q at position %d", ErrSyntax, l.src[start], start)
}

// sheetNameLength reports how many tokens from at(0) spell a worksheet name
// followed by '.', or 0 when they do not. A name starts with an identifier and
// may go on with identifiers and numbers, since the lexer splits names like
// "Level 2 Steel" on their spaces.
func sheetNameLength(at func(int) token) int {
	if at(0).typ != tokIdent {
		return 0
	}
	n := 1
	for at(n).typ == tokIdent || at(n).typ == tokNumber {
		n++
	}
	if at(n).typ != tokDot {
		return 0
	}
	return n
}

// sheetName returns the source text spanned by a run of name tokens, keeping
// the spacing between words as written.
func sheetName(src string, run []token) string {
	first, last := run[0], run[len(run)-1]
	return src[first.pos : last.pos+len(last.text)]
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
