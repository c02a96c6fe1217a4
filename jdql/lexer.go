package jdql

import (
	"fmt"
	"strings"

	"github.com/syssam/derive"
)

// lexer splits a query string into tokens.
type lexer struct {
	src  string
	off  int
	line int
	col  int
}

// Lex returns the tokens of src, terminated by an EOF token.
func Lex(src string) ([]Token, error) {
	l := &lexer{src: src, line: 1, col: 1}
	var toks []Token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.Kind == EOF {
			return toks, nil
		}
	}
}

func (l *lexer) peek(n int) byte {
	if l.off+n < len(l.src) {
		return l.src[l.off+n]
	}
	return 0
}

func (l *lexer) advance() byte {
	c := l.src[l.off]
	l.off++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *lexer) errorf(pos Pos, token, format string, args ...any) error {
	return derive.NewQueryParseError(l.src, pos.Line, pos.Column, token, fmt.Sprintf(format, args...))
}

func (l *lexer) next() (Token, error) {
	for l.off < len(l.src) && isSpace(l.src[l.off]) {
		l.advance()
	}
	pos := Pos{Line: l.line, Column: l.col}
	if l.off >= len(l.src) {
		return Token{Kind: EOF, Text: "<EOF>", Pos: pos}, nil
	}
	start := l.off
	c := l.peek(0)
	tok := func(k TokenKind, n int) (Token, error) {
		for i := 0; i < n; i++ {
			l.advance()
		}
		return Token{Kind: k, Text: l.src[start:l.off], Pos: pos}, nil
	}
	switch {
	case isLetter(c):
		for l.off < len(l.src) && (isLetter(l.peek(0)) || isDigit(l.peek(0))) {
			l.advance()
		}
		return Token{Kind: Ident, Text: l.src[start:l.off], Pos: pos}, nil
	case isDigit(c):
		return l.number(pos)
	case c == '\'':
		return l.str(pos)
	case c == '?':
		l.advance()
		if !isDigit(l.peek(0)) {
			return Token{}, l.errorf(pos, "?", "positional parameter requires an index")
		}
		for isDigit(l.peek(0)) {
			l.advance()
		}
		return Token{Kind: PosParam, Text: l.src[start+1 : l.off], Pos: pos}, nil
	case c == ':':
		l.advance()
		if !isLetter(l.peek(0)) {
			return Token{}, l.errorf(pos, ":", "named parameter requires a name")
		}
		for isLetter(l.peek(0)) || isDigit(l.peek(0)) {
			l.advance()
		}
		return Token{Kind: NamedParam, Text: l.src[start+1 : l.off], Pos: pos}, nil
	case c == '.':
		return tok(Dot, 1)
	case c == ',':
		return tok(Comma, 1)
	case c == '(':
		return tok(LParen, 1)
	case c == ')':
		return tok(RParen, 1)
	case c == '*':
		return tok(Star, 1)
	case c == '/':
		return tok(Slash, 1)
	case c == '+':
		return tok(Plus, 1)
	case c == '-':
		return tok(Minus, 1)
	case c == '|' && l.peek(1) == '|':
		return tok(Concat, 2)
	case c == '=':
		return tok(EQ, 1)
	case c == '!' && l.peek(1) == '=':
		return tok(NEQ, 2)
	case c == '<' && l.peek(1) == '>':
		return tok(NEQ, 2)
	case c == '<' && l.peek(1) == '=':
		return tok(LTE, 2)
	case c == '<':
		return tok(LT, 1)
	case c == '>' && l.peek(1) == '=':
		return tok(GTE, 2)
	case c == '>':
		return tok(GT, 1)
	}
	return Token{}, l.errorf(pos, string(c), "unexpected character %q", c)
}

func (l *lexer) number(pos Pos) (Token, error) {
	start := l.off
	kind := Int
	for isDigit(l.peek(0)) {
		l.advance()
	}
	if l.peek(0) == '.' && isDigit(l.peek(1)) {
		kind = Float
		l.advance()
		for isDigit(l.peek(0)) {
			l.advance()
		}
	}
	if c := l.peek(0); c == 'e' || c == 'E' {
		n := 1
		if s := l.peek(1); s == '+' || s == '-' {
			n = 2
		}
		if isDigit(l.peek(n)) {
			kind = Float
			for i := 0; i < n; i++ {
				l.advance()
			}
			for isDigit(l.peek(0)) {
				l.advance()
			}
		}
	}
	if isLetter(l.peek(0)) {
		return Token{}, l.errorf(pos, l.src[start:l.off+1], "malformed number")
	}
	return Token{Kind: kind, Text: l.src[start:l.off], Pos: pos}, nil
}

func (l *lexer) str(pos Pos) (Token, error) {
	l.advance()
	var sb strings.Builder
	for {
		if l.off >= len(l.src) {
			return Token{}, l.errorf(pos, "'", "unterminated string literal")
		}
		c := l.advance()
		if c != '\'' {
			sb.WriteByte(c)
			continue
		}
		if l.peek(0) != '\'' {
			return Token{Kind: String, Text: sb.String(), Pos: pos}, nil
		}
		sb.WriteByte(l.advance())
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isLetter(c byte) bool {
	return c == '_' || c == '$' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c >= 0x80
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
