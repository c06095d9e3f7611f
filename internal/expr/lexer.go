// Package expr implements the `${…}` interpolation expression language:
// variable lookup, accessors, arithmetic, boolean operators, a ternary
// form, a filter pipeline, and a whitelisted set of method calls
// (spec.md §4.2).
package expr

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tEOF tokenKind = iota
	tIdent
	tNumber
	tString
	tPunct
)

type token struct {
	kind  tokenKind
	text  string
	num   float64
	isInt bool
	intv  int64
}

type lexer struct {
	src  []rune
	pos  int
	toks []token
}

func lex(src string) ([]token, error) {
	l := &lexer{src: []rune(src)}
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			l.toks = append(l.toks, token{kind: tEOF})
			return l.toks, nil
		}
		c := l.src[l.pos]
		switch {
		case c == '\'' || c == '"':
			tok, err := l.lexString(c)
			if err != nil {
				return nil, err
			}
			l.toks = append(l.toks, tok)
		case isDigit(c):
			l.toks = append(l.toks, l.lexNumber())
		case isIdentStart(c):
			l.toks = append(l.toks, l.lexIdent())
		default:
			tok, err := l.lexPunct()
			if err != nil {
				return nil, err
			}
			l.toks = append(l.toks, tok)
		}
	}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\n' || l.src[l.pos] == '\r') {
		l.pos++
	}
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

func isIdentStart(c rune) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c rune) bool {
	return isIdentStart(c) || isDigit(c)
}

func (l *lexer) lexString(quote rune) (token, error) {
	l.pos++ // consume opening quote
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			return token{kind: tString, text: sb.String()}, nil
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			next := l.src[l.pos+1]
			switch next {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '\\', '\'', '"':
				sb.WriteRune(next)
			default:
				sb.WriteRune(next)
			}
			l.pos += 2
			continue
		}
		sb.WriteRune(c)
		l.pos++
	}
	return token{}, fmt.Errorf("unterminated string literal")
}

func (l *lexer) lexNumber() token {
	start := l.pos
	isFloat := false
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) {
		isFloat = true
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	text := string(l.src[start:l.pos])
	if isFloat {
		var f float64
		fmt.Sscanf(text, "%g", &f)
		return token{kind: tNumber, text: text, num: f}
	}
	var i int64
	fmt.Sscanf(text, "%d", &i)
	return token{kind: tNumber, text: text, isInt: true, intv: i, num: float64(i)}
}

func (l *lexer) lexIdent() token {
	start := l.pos
	for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
		l.pos++
	}
	return token{kind: tIdent, text: string(l.src[start:l.pos])}
}

var multiCharPuncts = []string{"==", "!=", "<=", ">=", "&&", "||"}

func (l *lexer) lexPunct() (token, error) {
	rest := string(l.src[l.pos:])
	for _, p := range multiCharPuncts {
		if strings.HasPrefix(rest, p) {
			l.pos += len([]rune(p))
			return token{kind: tPunct, text: p}, nil
		}
	}
	c := l.src[l.pos]
	switch c {
	case '.', '[', ']', '(', ')', '{', '}', ',', ':', '|', '+', '-', '*', '/', '%', '<', '>', '=', '!':
		l.pos++
		return token{kind: tPunct, text: string(c)}, nil
	default:
		return token{}, fmt.Errorf("unexpected character %q", c)
	}
}
