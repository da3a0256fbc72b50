package token

import (
	"fmt"
	"strconv"
)

type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	LPAREN // (
	RPAREN // )
	LEXEME // string, atom, symbol, extension or nil
)

var tokens = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",

	LPAREN: "(",
	RPAREN: ")",
	LEXEME: "LEXEME",
}

func (tokenType TokenType) String() string {
	s := ""
	if 0 <= tokenType && tokenType < TokenType(len(tokens)) {
		s = tokens[tokenType]
	}

	if s == "" {
		s = "token(" + strconv.Itoa(int(tokenType)) + ")"
	}

	return s
}

// Sigils select the lexeme kind from the first byte of a fragment.
const (
	ExtensionSigil = '#'
	AtomSigil      = ':'
	StringSigil    = '"'
	NilLiteral     = "nil"
)

type LexemeKind int

const (
	String LexemeKind = iota
	Atom
	Symbol
	Extension
	Nil
)

var lexemeKinds = [...]string{
	String:    "String",
	Atom:      "Atom",
	Symbol:    "Symbol",
	Extension: "Extension",
	Nil:       "Nil",
}

func (k LexemeKind) String() string {
	if 0 <= k && int(k) < len(lexemeKinds) {
		return lexemeKinds[k]
	}
	return "lexeme(" + strconv.Itoa(int(k)) + ")"
}

// Range is a half-open byte range [Start, End) into the source buffer.
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int {
	return r.End - r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("%d..%d", r.Start, r.End)
}

// Lexeme is a classified fragment of the source. Literal is a substring of the
// source buffer and is never copied; for every kind but Nil it equals
// source[Range.Start:Range.End].
type Lexeme struct {
	Kind    LexemeKind
	Range   Range
	Literal string
}

func (l Lexeme) String() string {
	switch l.Kind {
	case String:
		return strconv.Quote(l.Literal)
	case Atom:
		return string(AtomSigil) + l.Literal
	case Extension:
		return string(ExtensionSigil) + l.Literal
	case Nil:
		return NilLiteral
	}
	return l.Literal
}

// Offset is the position of the first byte of the lexeme including its sigil.
func (l Lexeme) Offset() int {
	switch l.Kind {
	case String, Atom, Extension:
		return l.Range.Start - 1
	}
	return l.Range.Start
}

// Token is a paren at Pos or a Lexeme.
type Token struct {
	Type   TokenType
	Pos    int
	Lexeme Lexeme
}

func (t Token) String() string {
	if t.Type == LEXEME {
		return t.Lexeme.String()
	}
	return t.Type.String()
}
