package lexer

import (
	"errors"
	"fmt"
	"iter"

	"github.com/thiremani/sexpc/token"
)

var (
	ErrStringDelimiter = errors.New("string reached end of input without closing delimiter")
	ErrEndWithAtom     = errors.New("atom reached end of input without delimiter")
	ErrEndWithExt      = errors.New("extension reached end of input without delimiter")
	ErrEndWithSymbol   = errors.New("symbol reached end of input without delimiter")
)

// Error reports a lexeme that ran into the end of the input. Start is the
// offset of its first byte (sigil included) and End the length of the input.
type Error struct {
	Err     error
	Start   int
	End     int
	Literal string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %v: %q", e.Start, e.End, e.Err, e.Literal)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Lexer scans the source once from the start. It cannot be rewound; scanning
// the same buffer again needs a new Lexer.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current byte)
	readPosition int  // current reading position in input (after current byte)
	curr         byte // current byte under examination
	err          error
}

func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readByte()
	return l
}

// Input returns the source buffer every lexeme borrows from.
func (l *Lexer) Input() string {
	return l.input
}

// NextToken returns the next token, or a token.EOF token once the input is
// exhausted. After an error every call returns that same error.
func (l *Lexer) NextToken() (token.Token, error) {
	if l.err != nil {
		return token.Token{Type: token.ILLEGAL, Pos: l.position}, l.err
	}

	l.skipWhitespace()
	if l.atEnd() {
		return token.Token{Type: token.EOF, Pos: len(l.input)}, nil
	}

	var tok token.Token
	var err error
	switch l.curr {
	case '(':
		tok = token.Token{Type: token.LPAREN, Pos: l.position}
		l.readByte()
	case ')':
		tok = token.Token{Type: token.RPAREN, Pos: l.position}
		l.readByte()
	case token.StringSigil:
		tok, err = l.readString()
	case token.ExtensionSigil:
		tok, err = l.readSigiled(token.Extension, ErrEndWithExt)
	case token.AtomSigil:
		tok, err = l.readSigiled(token.Atom, ErrEndWithAtom)
	default:
		tok, err = l.readSymbol()
	}

	if err != nil {
		l.err = err
	}
	return tok, err
}

// Tokens yields every token up to, but not including, EOF. Iteration stops
// after the first error.
func (l *Lexer) Tokens() iter.Seq2[token.Token, error] {
	return func(yield func(token.Token, error) bool) {
		for {
			tok, err := l.NextToken()
			if err != nil {
				yield(tok, err)
				return
			}
			if tok.Type == token.EOF {
				return
			}
			if !yield(tok, nil) {
				return
			}
		}
	}
}

func (l *Lexer) readString() (token.Token, error) {
	start := l.position
	l.readByte()
	for !l.atEnd() && l.curr != token.StringSigil {
		l.readByte()
	}
	if l.atEnd() {
		return l.fail(ErrStringDelimiter, start)
	}
	lex := l.lexeme(token.String, start+1, l.position)
	l.readByte() // closing quote
	return token.Token{Type: token.LEXEME, Pos: start, Lexeme: lex}, nil
}

func (l *Lexer) readSigiled(kind token.LexemeKind, endErr error) (token.Token, error) {
	start := l.position
	l.readByte()
	l.skipFragment()
	if l.atEnd() {
		return l.fail(endErr, start)
	}
	return token.Token{Type: token.LEXEME, Pos: start, Lexeme: l.lexeme(kind, start+1, l.position)}, nil
}

func (l *Lexer) readSymbol() (token.Token, error) {
	start := l.position
	l.skipFragment()
	if l.atEnd() {
		return l.fail(ErrEndWithSymbol, start)
	}
	if l.input[start:l.position] == token.NilLiteral {
		lex := token.Lexeme{Kind: token.Nil, Range: token.Range{Start: start, End: l.position}}
		return token.Token{Type: token.LEXEME, Pos: start, Lexeme: lex}, nil
	}
	return token.Token{Type: token.LEXEME, Pos: start, Lexeme: l.lexeme(token.Symbol, start, l.position)}, nil
}

func (l *Lexer) lexeme(kind token.LexemeKind, start, end int) token.Lexeme {
	return token.Lexeme{
		Kind:    kind,
		Range:   token.Range{Start: start, End: end},
		Literal: l.input[start:end],
	}
}

func (l *Lexer) fail(err error, start int) (token.Token, error) {
	return token.Token{Type: token.ILLEGAL, Pos: start}, &Error{
		Err:     err,
		Start:   start,
		End:     len(l.input),
		Literal: l.input[start:],
	}
}

func (l *Lexer) skipFragment() {
	for !l.atEnd() && !IsDelimiter(l.curr) {
		l.readByte()
	}
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() && IsWhitespace(l.curr) {
		l.readByte()
	}
}

func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) readByte() {
	if l.readPosition >= len(l.input) {
		l.curr = 0
	} else {
		l.curr = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

// IsWhitespace reports whether ch separates tokens. Newlines and tabs count
// as whitespace alongside the space.
func IsWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

// IsDelimiter reports whether ch ends a multi-byte lexeme.
func IsDelimiter(ch byte) bool {
	return IsWhitespace(ch) || ch == '(' || ch == ')'
}
