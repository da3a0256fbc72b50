package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiremani/sexpc/ast"
	"github.com/thiremani/sexpc/lexer"
	"github.com/thiremani/sexpc/types"
)

func mustParse(t *testing.T, input string) *ast.Program {
	t.Helper()
	prog, err := New(lexer.New(input)).Parse()
	require.NoError(t, err, "input: %s", input)
	return prog
}

func TestReadFunc(t *testing.T) {
	prog := mustParse(t, "(defun :int add (:int a :long b c) (return (+ a b)))")
	require.Len(t, prog.Statements, 1)

	fn, ok := prog.Statements[0].(*ast.Func)
	require.True(t, ok, "got %T", prog.Statements[0])
	assert.Equal(t, "add", fn.Def.Name.Literal)
	assert.Equal(t, types.Integer, fn.Def.Ret)
	require.Len(t, fn.Def.Params, 3)
	assert.Equal(t, types.Integer, fn.Def.Params[0].Type)
	assert.Equal(t, types.Long, fn.Def.Params[1].Type)
	assert.Equal(t, types.Integer, fn.Def.Params[2].Type)
	assert.Equal(t, "int add(int, long, int)", fn.Def.Signature().String())

	require.Len(t, fn.Body, 1)
	ret, ok := fn.Body[0].(*ast.Return)
	require.True(t, ok)
	infix, ok := ret.Value.(*ast.InfixExpression)
	require.True(t, ok)
	assert.Equal(t, ast.Add, infix.Operator)
	assert.Equal(t, "(a + b)", infix.String())
}

func TestReadMain(t *testing.T) {
	prog := mustParse(t, "(defun main () (exit 0))")
	fn := prog.Statements[0].(*ast.Func)
	assert.Equal(t, types.Nothing, fn.Def.Ret)
	assert.Empty(t, fn.Def.Params)

	stmt := fn.Body[0].(*ast.ExpressionStatement)
	call := stmt.Expression.(*ast.CallExpression)
	assert.Equal(t, "exit", call.Function.Literal)
	assert.False(t, call.Extension)
	require.Len(t, call.Arguments, 1)
	assert.Equal(t, int64(0), call.Arguments[0].(*ast.IntegerLiteral).Value)
}

func TestReadExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"(let a (+ 5 10))", "int a = (5 + 10);"},
		{"(let :long a (* 2 (- 7 3)))", "long a = (2 * (7 - 3));"},
		{`(let s "hello")`, `*char s = "hello";`},
		{"(let big 4294967296)", "long big = 4294967296;"},
		{"(let n nil)", "int n = nil;"},
		{"(let c (if (< 1 2) 3 4))", "int c = ((1 < 2) ? 3 : 4);"},
		{"(let c (if (= 1 2) 3))", "int c = ((1 = 2) ? 3 : nil);"},
		{"(#syscall 60 0)", "#syscall(60, 0);"},
		{"(print \"hi\" -3)", `print("hi", -3);`},
		{"(let h 0x10)", "int h = 0x10;"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			prog := mustParse(t, tt.input)
			require.Len(t, prog.Statements, 1)
			assert.Equal(t, tt.expected, prog.Statements[0].String())
		})
	}
}

func TestReadDocString(t *testing.T) {
	prog := mustParse(t, `(defun print2 (:string msg) "Prints msg" (print msg))`)
	fn := prog.Statements[0].(*ast.Func)
	require.Len(t, fn.Body, 2)
	_, ok := fn.Body[0].(*ast.ExpressionStatement).Expression.(*ast.StringLiteral)
	assert.True(t, ok)
	assert.Equal(t, types.String, fn.Def.Params[0].Type)
}

func TestIsTempName(t *testing.T) {
	for name, want := range map[string]bool{
		"t0": true, "t17": true,
		"t": false, "tx": false, "t1a": false, "x0": false, "total": false,
	} {
		assert.Equal(t, want, IsTempName(name), name)
	}
}

func TestFormErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		offset int
		msg    string
	}{
		{"empty", "()", 0, "empty form"},
		{"no name", "(defun ())", 0, "function name"},
		{"no params", "(defun f)", 7, "parameter list"},
		{"unknown type", "(defun :float f ())", 7, "unknown type"},
		{"dangling type", "(defun f (a :int))", 12, "no parameter name"},
		{"let arity", "(let x 1 2)", 0, "exactly one value"},
		{"operator arity", "(+ 1 2 3)", 0, "expects 2 operands"},
		{"return at top", "(return 1)", 0, "outside of a function"},
		{"atom value", "(let x :int)", 7, "used as a value"},
		{"call list", "((f) 1)", 0, "cannot call a list"},
		{"call string", `("f" 1)`, 1, "cannot call"},
		{"let as value", "(print (let x 1))", 7, "statement"},
		{"bad int", "(let x 99999999999999999999)", 7, "could not parse"},
		{"temp variable", "(let t0 5)", 5, "reserved for temporaries"},
		{"temp parameter", "(defun f (a t12) (return a))", 12, "reserved for temporaries"},
		{"temp function", "(defun t3 () (return 1))", 7, "reserved for temporaries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(lexer.New(tt.input)).Parse()
			require.ErrorIs(t, err, ErrMalformed)

			var fe *FormError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.offset, fe.Offset)
			assert.Contains(t, fe.Msg, tt.msg)
		})
	}
}
