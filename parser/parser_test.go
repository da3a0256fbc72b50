package parser

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiremani/sexpc/ast"
	"github.com/thiremani/sexpc/lexer"
	"github.com/thiremani/sexpc/token"
)

func countLexemes(t *testing.T, input string) int {
	t.Helper()
	n := 0
	for tok, err := range lexer.New(input).Tokens() {
		require.NoError(t, err)
		if tok.Type == token.LEXEME {
			n++
		}
	}
	return n
}

func TestParseWellFormed(t *testing.T) {
	tests := []struct {
		input string
		forms []string
	}{
		{"(a)", []string{"(a)"}},
		{"()", []string{"()"}},
		{"(a (b) c)", []string{"(a (b) c)"}},
		{"(defun main () (exit 0))", []string{"(defun main () (exit 0))"}},
		{"(let x 1) (let y 2)\n(print \"hi\")", []string{"(let x 1)", "(let y 2)", `(print "hi")`}},
		{"(((deep)))", []string{"(((deep)))"}},
		{"(:int #ext nil)", []string{"(:int #ext nil)"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p := New(lexer.New(tt.input))
			roots, err := p.ParseAll()
			require.NoError(t, err)
			require.Len(t, roots, len(tt.forms))

			leaves := 0
			for i, root := range roots {
				assert.Equal(t, tt.forms[i], p.Arena().Format(root))
				leaves += p.Arena().Items(root)
				for v := range p.Arena().Walk(root) {
					assert.True(t, v.Closed())
				}
			}
			assert.Equal(t, countLexemes(t, tt.input), leaves)
		})
	}
}

func TestParseFormReturnsEOF(t *testing.T) {
	p := New(lexer.New("(a) "))
	root, err := p.ParseForm()
	require.NoError(t, err)
	assert.Equal(t, ast.NodeID(0), root)

	_, err = p.ParseForm()
	assert.ErrorIs(t, err, io.EOF)
}

func TestParentLinks(t *testing.T) {
	p := New(lexer.New("(a (b (c)) (d))"))
	root, err := p.ParseForm()
	require.NoError(t, err)

	arena := p.Arena()
	for v := range arena.Walk(root) {
		if v.ID == root {
			assert.Equal(t, ast.NoNode, v.Parent())
			continue
		}
		parent := arena.View(v.Parent())
		found := false
		for i := 0; i < parent.Len(); i++ {
			c := parent.Child(i)
			if c.IsList && c.List == v.ID {
				found = true
			}
		}
		assert.True(t, found, "list %d missing from its parent's children", v.ID)
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		err    error
		offset int
	}{
		{"unclosed", "(a (b)", ErrUnexpectedEOF, 0},
		{"unclosed inner", "(a (b ", ErrUnexpectedEOF, 3},
		{"leading closer", ")", ErrUnexpectedR, 0},
		{"leading closer before form", ") (a)", ErrUnexpectedR, 0},
		{"stray closer after form", "(a) )", ErrUnexpectedR, 4},
		{"bare lexeme", "hello (a)", ErrUnexpectedLexeme, 0},
		{"bare string", `"s" (a)`, ErrUnexpectedLexeme, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(lexer.New(tt.input)).ParseAll()
			require.ErrorIs(t, err, tt.err)

			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.offset, se.Offset)
		})
	}
}

func TestLexerErrorsPassThrough(t *testing.T) {
	_, err := New(lexer.New("(print :debug hello")).ParseAll()
	require.ErrorIs(t, err, lexer.ErrEndWithSymbol)

	var lexErr *lexer.Error
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, 14, lexErr.Start)

	var se *SyntaxError
	assert.False(t, errors.As(err, &se))
}

func TestParseIsFailFast(t *testing.T) {
	p := New(lexer.New("(a) ) (b)"))
	roots, err := p.ParseAll()
	require.ErrorIs(t, err, ErrUnexpectedR)
	assert.Len(t, roots, 1)

	// no resynchronization: the caller may continue from the failure point
	root, err := p.ParseForm()
	require.NoError(t, err)
	assert.Equal(t, "(b)", p.Arena().Format(root))
}
