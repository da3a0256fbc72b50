package parser

import (
	"errors"
	"fmt"
	"io"

	"github.com/thiremani/sexpc/ast"
	"github.com/thiremani/sexpc/lexer"
	"github.com/thiremani/sexpc/token"
)

var (
	ErrUnexpectedEOF    = errors.New("unexpected end of input")
	ErrUnexpectedR      = errors.New("unexpected )")
	ErrUnexpectedLexeme = errors.New("lexeme outside of a list")
)

// SyntaxError locates a structural error. For ErrUnexpectedEOF, Offset is the
// opening paren of the innermost list left open.
type SyntaxError struct {
	Err    error
	Offset int
}

func (e *SyntaxError) Error() string {
	if errors.Is(e.Err, ErrUnexpectedEOF) {
		return fmt.Sprintf("%d: %v: list is never closed", e.Offset, e.Err)
	}
	return fmt.Sprintf("%d: %v", e.Offset, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Parser builds one arena tree per top-level form. Every form must be a list.
type Parser struct {
	l     *lexer.Lexer
	arena *ast.Arena
}

func New(l *lexer.Lexer) *Parser {
	return &Parser{
		l:     l,
		arena: ast.NewArena(),
	}
}

// Arena holds every list parsed so far.
func (p *Parser) Arena() *ast.Arena {
	return p.arena
}

// Input is the source buffer the parsed lexemes borrow from.
func (p *Parser) Input() string {
	return p.l.Input()
}

// ParseForm parses the next top-level form and returns its root. It returns
// io.EOF when the input holds no further form. On error the token stream is
// left where the failure occurred.
func (p *Parser) ParseForm() (ast.NodeID, error) {
	current := ast.NoNode
	for {
		tok, err := p.l.NextToken()
		if err != nil {
			return ast.NoNode, err
		}

		switch tok.Type {
		case token.EOF:
			if current == ast.NoNode {
				return ast.NoNode, io.EOF
			}
			return ast.NoNode, &SyntaxError{Err: ErrUnexpectedEOF, Offset: p.arena.View(current).Open()}

		case token.LPAREN:
			current = p.arena.New(current, tok.Pos)

		case token.RPAREN:
			if current == ast.NoNode {
				return ast.NoNode, &SyntaxError{Err: ErrUnexpectedR, Offset: tok.Pos}
			}
			if err := p.arena.Close(current, tok.Pos); err != nil {
				return ast.NoNode, err
			}
			parent := p.arena.View(current).Parent()
			if parent == ast.NoNode {
				return current, nil
			}
			if err := p.arena.AddList(parent, current); err != nil {
				return ast.NoNode, err
			}
			current = parent

		case token.LEXEME:
			if current == ast.NoNode {
				return ast.NoNode, &SyntaxError{Err: ErrUnexpectedLexeme, Offset: tok.Pos}
			}
			if err := p.arena.AddItem(current, tok.Lexeme); err != nil {
				return ast.NoNode, err
			}

		default:
			return ast.NoNode, fmt.Errorf("%d: unexpected token %s", tok.Pos, tok)
		}
	}
}

// ParseAll parses forms until the input is exhausted and stops at the first
// error. Roots parsed before the failure are returned with it.
func (p *Parser) ParseAll() ([]ast.NodeID, error) {
	roots := []ast.NodeID{}
	for {
		root, err := p.ParseForm()
		if errors.Is(err, io.EOF) {
			return roots, nil
		}
		if err != nil {
			return roots, err
		}
		roots = append(roots, root)
	}
}
