package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiremani/sexpc/ast"
)

func buildCFG(t *testing.T, input string) *CFG {
	t.Helper()
	prog := parseProgram(t, input)
	b, err := BuildSymbols(prog)
	require.NoError(t, err)
	g, err := BuildCFG(prog, b)
	require.NoError(t, err)
	require.NoError(t, g.Check())
	return g
}

func block(t *testing.T, g *CFG, id BlockID) *BasicBlock {
	t.Helper()
	b, ok := g.Block(id)
	require.True(t, ok, "missing block %s in\n%s", id, g)
	return b
}

func TestFunctionCFG(t *testing.T) {
	g := buildCFG(t, "(defun :int add (a b) (return (+ a b))) (defun main () (exit (add 1 2)))")

	var ids []BlockID
	for _, b := range g.Blocks {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []BlockID{"entry", "add", "add.exit", "main", "main.exit"}, ids)

	add := block(t, g, "add")
	a, b, add0 := Ref{GlobalScope, "a"}, Ref{GlobalScope, "b"}, Ref{1, "t0"}
	assert.Equal(t, []Instruction{
		BinAssign{Dest: add0, Left: a, Right: b, Op: ast.Add},
		Move{Dest: Ref{GlobalScope, "add"}, Src: add0},
		Goto{Target: "add.exit"},
	}, add.Instrs)
	assert.Equal(t, []BlockID{"add.exit"}, add.Successors())
	assert.Equal(t, []BlockID{"add"}, block(t, g, "add.exit").Predecessors())

	fn, ok := g.Func("add")
	require.True(t, ok)
	assert.Equal(t, []Ref{a, b}, fn.Params)
	assert.Equal(t, Ref{GlobalScope, "add"}, fn.Result)

	main := block(t, g, "main")
	require.Len(t, main.Instrs, 4)
	call, ok := main.Instrs[2].(Call)
	require.True(t, ok)
	assert.Equal(t, BlockID("add"), call.Target)
	assert.Equal(t, []Ref{{2, "t0"}, {2, "t1"}}, call.Args)
	assert.Equal(t, Ref{2, "t2"}, *call.Result)

	exit := main.Instrs[3].(Call)
	assert.Equal(t, BuiltinExit, exit.Target)
	assert.True(t, exit.Target.IsBuiltin())
	assert.Equal(t, []Ref{{2, "t2"}}, exit.Args)
	assert.Equal(t, []BlockID{"main.exit"}, main.Successors())
}

func TestIfCFG(t *testing.T) {
	g := buildCFG(t, "(let c (if (< 1 2) 3 4))")

	entry := block(t, g, EntryBlock)
	require.NotNil(t, entry.Next)
	assert.Equal(t, Branch, entry.Next.Kind)
	assert.Equal(t, Ref{GlobalScope, "t2"}, entry.Next.Cond)
	assert.Equal(t, []BlockID{"entry.then0", "entry.else0"}, entry.Successors())

	then := block(t, g, "entry.then0")
	assert.Equal(t, Move{Dest: Ref{GlobalScope, "t5"}, Src: Ref{GlobalScope, "t3"}}, then.Instrs[1])

	join := block(t, g, "entry.join0")
	assert.Equal(t, Branch, join.Prev.Kind)
	assert.ElementsMatch(t, []BlockID{"entry.then0", "entry.else0"}, join.Predecessors())
	assert.Equal(t, []Instruction{Move{Dest: Ref{GlobalScope, "c"}, Src: Ref{GlobalScope, "t5"}}}, join.Instrs)
}

func TestLiteralsAssignTheirTemporaries(t *testing.T) {
	g := buildCFG(t, `(let s "hi")`)
	entry := block(t, g, EntryBlock)
	require.Len(t, entry.Instrs, 2)

	sa, ok := entry.Instrs[0].(SingleAssign)
	require.True(t, ok)
	assert.Equal(t, Ref{GlobalScope, "t0"}, sa.Dest)
	assert.Equal(t, "hi", sa.Source.Value.Str)
	assert.Equal(t, Move{Dest: Ref{GlobalScope, "s"}, Src: Ref{GlobalScope, "t0"}}, entry.Instrs[1])
}

func TestForwardCallAndDeadCode(t *testing.T) {
	g := buildCFG(t, `(defun main () (helper)) (defun helper () (return 1) (print "never"))`)

	dead := block(t, g, "helper.dead0")
	assert.Empty(t, dead.Predecessors())
	assert.Equal(t, []BlockID{"helper.exit"}, dead.Successors())

	call := block(t, g, "main").Instrs[0].(Call)
	assert.Equal(t, BlockID("helper"), call.Target)
}

func TestEntryLabelIsReserved(t *testing.T) {
	g := buildCFG(t, "(defun entry () (return 1))")
	_, ok := g.Func("entry_1")
	assert.True(t, ok)
}

func TestLoweringErrors(t *testing.T) {
	tests := []struct {
		input string
		err   error
	}{
		{"(defun f (a) (return a)) (f 1 2)", ErrArity},
		{"(exit)", ErrArity},
		{"(#syscall 1 2 3 4 5)", ErrArity},
		{"(#foo 1)", ErrNotCallable},
		{"(let x 1) (x 2)", ErrNotCallable},
		{"(nope 1)", ErrUndefined},
		{"(print y)", ErrUndefined},
		{"(exit y) (let y 7)", ErrUndefined},
		{"(let y y)", ErrUndefined},
		{"(defun f () (return z)) (let z 1) (f)", ErrUndefined},
		{"(defun add () (return 1)) (print add)", ErrNotValue},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			prog := parseProgram(t, tt.input)
			b, err := BuildSymbols(prog)
			require.NoError(t, err)
			_, err = BuildCFG(prog, b)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestUseBeforeLetCarriesOffset(t *testing.T) {
	prog := parseProgram(t, "(exit y) (let y 7)")
	b, err := BuildSymbols(prog)
	require.NoError(t, err)
	_, err = BuildCFG(prog, b)

	var ue *UndefinedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "y", ue.Name)
	assert.Equal(t, 6, ue.Offset)

	prog = parseProgram(t, "(let y 7) (exit y)")
	b, err = BuildSymbols(prog)
	require.NoError(t, err)
	_, err = BuildCFG(prog, b)
	assert.NoError(t, err)
}

func TestLinkKeepsEdgesConsistent(t *testing.T) {
	g := NewCFG()
	for _, id := range []BlockID{"a", "b", "c", "d"} {
		_, err := g.NewBlock(id)
		require.NoError(t, err)
	}
	_, err := g.NewBlock("a")
	assert.Error(t, err)

	require.NoError(t, g.Fork("a", Ref{GlobalScope, "x"}, "b", "c"))
	require.NoError(t, g.Link("b", "d"))
	require.NoError(t, g.Link("c", "d"))
	require.NoError(t, g.Check())

	assert.ErrorIs(t, g.Link("b", "c"), ErrEdge)
	assert.ErrorIs(t, g.Link("d", "zz"), ErrEdge)

	// a successor edge without its predecessor
	d, _ := g.Block("d")
	d.Next = &Vertices{Kind: Linear, Targets: []BlockID{"a"}}
	assert.ErrorIs(t, g.Check(), ErrEdge)
}
