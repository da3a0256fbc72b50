package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiremani/sexpc/ast"
	"github.com/thiremani/sexpc/lexer"
	"github.com/thiremani/sexpc/parser"
	"github.com/thiremani/sexpc/types"
)

func parseProgram(t *testing.T, input string) *ast.Program {
	t.Helper()
	prog, err := parser.New(lexer.New(input)).Parse()
	require.NoError(t, err, "input: %s", input)
	return prog
}

func bind(t *testing.T, input string) *Bindings {
	t.Helper()
	b, err := BuildSymbols(parseProgram(t, input))
	require.NoError(t, err)
	return b
}

func TestDuplicateParameter(t *testing.T) {
	b, err := BuildSymbols(parseProgram(t, "(defun f (x x) (return x))"))
	require.ErrorIs(t, err, ErrAlreadyExists)

	var ae *AlreadyExistsError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "x", ae.Name)
	assert.Equal(t, Parameter, ae.Prior.Role)

	first, ok := b.Map.Scope(GlobalScope).Get("x")
	require.True(t, ok)
	assert.Same(t, first, ae.Prior)
	assert.NotSame(t, first, ae.New)
	assert.Contains(t, err.Error(), "x already declared in scope g")
}

func TestTemporaries(t *testing.T) {
	b := bind(t, "(let a (+ 5 10))")
	global := b.Map.Scope(GlobalScope)
	assert.Equal(t, []string{"t0", "t1", "a"}, global.Names())

	t0, _ := global.Get("t0")
	assert.Equal(t, int64(5), t0.Value.Int)
	t1, _ := global.Get("t1")
	assert.Equal(t, int64(10), t1.Value.Int)

	a, _ := global.Get("a")
	assert.Equal(t, Variable, a.Role)
	assert.Equal(t, types.Integer, a.Type)
	assert.Nil(t, a.Value)
}

func TestCallArgumentsAreArguments(t *testing.T) {
	b := bind(t, `(print "hi" 2)`)
	global := b.Map.Scope(GlobalScope)
	assert.Equal(t, []string{"t0", "t1", "t2"}, global.Names())

	t0, _ := global.Get("t0")
	assert.Equal(t, Argument, t0.Role)
	assert.Equal(t, types.String, t0.Type)
	assert.Equal(t, `"hi"`, t0.Value.String())

	t2, _ := global.Get("t2")
	assert.Nil(t, t2.Value)
}

func TestFunctionScopes(t *testing.T) {
	prog := parseProgram(t, "(defun :int add (a b) (return (+ a b)))")
	b, err := BuildSymbols(prog)
	require.NoError(t, err)

	global := b.Map.Scope(GlobalScope)
	assert.Equal(t, []string{"a", "b", "add"}, global.Names())

	a, _ := global.Get("a")
	assert.Equal(t, Parameter, a.Role)
	add, _ := global.Get("add")
	assert.Equal(t, FunctionSignature, add.Role)
	assert.Equal(t, "int add(int, int)", add.Type.String())

	body := b.Bodies[prog.Statements[0].(*ast.Func)]
	require.Equal(t, ScopeID(1), body)
	table := b.Map.Scope(body)
	assert.Equal(t, "add", table.Label)
	assert.Equal(t, GlobalScope, table.Parent)
	assert.Equal(t, []string{"t0"}, table.Names())

	ref, sym, err := b.Map.Lookup(body, "a")
	require.NoError(t, err)
	assert.Equal(t, Ref{Scope: GlobalScope, Name: "a"}, ref)
	assert.Same(t, a, sym)

	_, _, err = b.Map.Lookup(body, "missing")
	assert.ErrorIs(t, err, ErrUndefined)
}

func TestIndependentFormsContinue(t *testing.T) {
	b, err := BuildSymbols(parseProgram(t, "(let x 1) (let x 2) (let y 3)"))
	require.ErrorIs(t, err, ErrAlreadyExists)

	_, ok := b.Map.Scope(GlobalScope).Get("y")
	assert.True(t, ok)
}

func TestTempNameSkipsBoundNames(t *testing.T) {
	st := NewSymbolTable("g", NoScope)
	require.NoError(t, st.Insert("t0", &Symbol{Type: types.Integer}))
	require.NoError(t, st.Insert("t2", &Symbol{Type: types.Integer}))
	assert.Equal(t, "t1", st.TempName())

	require.NoError(t, st.Insert("t1", &Symbol{Type: types.Integer}))
	assert.Equal(t, "t3", st.TempName())
}

func TestInsertLeavesTableUnchanged(t *testing.T) {
	st := NewSymbolTable("g", NoScope)
	first := &Symbol{Type: types.Integer, Role: Variable}
	require.NoError(t, st.Insert("v", first))

	err := st.Insert("v", &Symbol{Type: types.Long, Role: Parameter})
	require.ErrorIs(t, err, ErrAlreadyExists)

	got, _ := st.Get("v")
	assert.Same(t, first, got)
	assert.Equal(t, []string{"v"}, st.Names())
}

func TestScopeLabelsAreUnique(t *testing.T) {
	b := bind(t, "(defun f () (defun g () 1)) (defun h () (defun g () 2))")
	seen := map[string]bool{}
	for _, table := range b.Map.Scopes {
		assert.False(t, seen[table.Label], "label %s reused", table.Label)
		seen[table.Label] = true
	}
	assert.Equal(t, "g_2", b.Map.Scope(2).Label)
	assert.Equal(t, "g_4", b.Map.Scope(4).Label)
}
