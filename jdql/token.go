package jdql

import (
	"fmt"
	"strings"
)

// TokenKind identifies the lexical class of a token.
type TokenKind uint8

// Token kinds.
const (
	EOF TokenKind = iota
	Ident
	String
	Int
	Float
	PosParam   // ?N
	NamedParam // :name
	Dot
	Comma
	LParen
	RParen
	Star
	Slash
	Plus
	Minus
	Concat // ||
	EQ
	NEQ // <> or !=
	GT
	GTE
	LT
	LTE
)

var tokenNames = [...]string{
	EOF:        "<EOF>",
	Ident:      "identifier",
	String:     "string",
	Int:        "integer",
	Float:      "float",
	PosParam:   "positional parameter",
	NamedParam: "named parameter",
	Dot:        ".",
	Comma:      ",",
	LParen:     "(",
	RParen:     ")",
	Star:       "*",
	Slash:      "/",
	Plus:       "+",
	Minus:      "-",
	Concat:     "||",
	EQ:         "=",
	NEQ:        "<>",
	GT:         ">",
	GTE:        ">=",
	LT:         "<",
	LTE:        "<=",
}

// String returns the token kind name.
func (k TokenKind) String() string {
	if int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return fmt.Sprintf("token(%d)", k)
}

// Pos is a 1-based source position.
type Pos struct {
	Line   int
	Column int
}

// String returns line:column.
func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a lexical token. Text holds the source text, or the decoded value
// for strings and parameters.
type Token struct {
	Kind TokenKind
	Text string
	Pos  Pos
}

// Is reports if the token is the given keyword.
func (t Token) Is(keyword string) bool {
	return t.Kind == Ident && strings.EqualFold(t.Text, keyword)
}

// display returns the token as shown in error messages.
func (t Token) display() string {
	switch t.Kind {
	case EOF:
		return "<EOF>"
	case String:
		return "'" + strings.ReplaceAll(t.Text, "'", "''") + "'"
	case PosParam:
		return "?" + t.Text
	case NamedParam:
		return ":" + t.Text
	default:
		return t.Text
	}
}

// keywords cannot be used as identifiers.
var keywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "ORDER": true, "BY": true,
	"ASC": true, "DESC": true, "AND": true, "OR": true, "NOT": true,
	"LIKE": true, "IN": true, "BETWEEN": true, "IS": true, "NULL": true,
	"TRUE": true, "FALSE": true, "UPDATE": true, "SET": true, "DELETE": true,
	"AS": true, "COUNT": true, "DISTINCT": true,
}

func isKeyword(s string) bool {
	return keywords[strings.ToUpper(s)]
}
