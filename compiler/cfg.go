package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/thiremani/sexpc/ast"
)

// BlockID names a basic block. It doubles as the block's code label.
type BlockID string

const EntryBlock BlockID = "entry"

func (id BlockID) IsBuiltin() bool {
	return strings.HasPrefix(string(id), "#")
}

// Instruction is one step of a basic block.
type Instruction interface {
	String() string
	instruction()
}

// BinAssign is Dest = Left Op Right.
type BinAssign struct {
	Dest, Left, Right Ref
	Op                ast.BinOp
}

// SingleAssign binds Dest to the literal value of Source.
type SingleAssign struct {
	Dest   Ref
	Source *Symbol
}

// Move copies Src into Dest.
type Move struct {
	Dest, Src Ref
}

type Goto struct {
	Target BlockID
}

// Call transfers control to Target with Args. Result, when set, receives the
// value the call produces.
type Call struct {
	Target BlockID
	Args   []Ref
	Result *Ref
}

func (BinAssign) instruction()    {}
func (SingleAssign) instruction() {}
func (Move) instruction()         {}
func (Goto) instruction()         {}
func (Call) instruction()         {}

func (i BinAssign) String() string {
	return fmt.Sprintf("%s = %s %s %s", i.Dest, i.Left, i.Op, i.Right)
}

func (i SingleAssign) String() string {
	return fmt.Sprintf("%s = %s", i.Dest, i.Source.Value)
}

func (i Move) String() string {
	return fmt.Sprintf("%s <- %s", i.Dest, i.Src)
}

func (i Goto) String() string {
	return "goto " + string(i.Target)
}

func (i Call) String() string {
	args := make([]string, 0, len(i.Args))
	for _, a := range i.Args {
		args = append(args, a.String())
	}
	call := fmt.Sprintf("call %s(%s)", i.Target, strings.Join(args, ", "))
	if i.Result != nil {
		call = i.Result.String() + " = " + call
	}
	return call
}

type EdgeKind int

const (
	Linear EdgeKind = iota
	Branch
)

// Vertices is one side of a block's edges. A Branch successor set is
// [then, else] and reads Cond.
type Vertices struct {
	Kind    EdgeKind
	Targets []BlockID
	Cond    Ref
}

type BasicBlock struct {
	ID     BlockID
	Instrs []Instruction
	Prev   *Vertices
	Next   *Vertices
}

func (b *BasicBlock) Emit(ins Instruction) {
	b.Instrs = append(b.Instrs, ins)
}

// Successors returns the blocks control may flow to.
func (b *BasicBlock) Successors() []BlockID {
	if b.Next == nil {
		return nil
	}
	return b.Next.Targets
}

func (b *BasicBlock) Predecessors() []BlockID {
	if b.Prev == nil {
		return nil
	}
	return b.Prev.Targets
}

// Function describes the subgraph of one function.
type Function struct {
	Name   string
	Entry  BlockID
	Exit   BlockID
	Body   ScopeID
	Params []Ref
	Result Ref // the return slot
}

var ErrEdge = errors.New("inconsistent edge")

// CFG is the control-flow graph of a whole program. Top-level code starts at
// EntryBlock; every function has its own entry and exit blocks.
type CFG struct {
	Blocks []*BasicBlock
	Funcs  []*Function
	index  map[BlockID]*BasicBlock
	funcs  map[BlockID]*Function
}

func NewCFG() *CFG {
	return &CFG{
		index: map[BlockID]*BasicBlock{},
		funcs: map[BlockID]*Function{},
	}
}

// NewBlock adds an empty block. IDs must be unique.
func (g *CFG) NewBlock(id BlockID) (*BasicBlock, error) {
	if _, ok := g.index[id]; ok {
		return nil, fmt.Errorf("block %s already exists", id)
	}
	b := &BasicBlock{ID: id}
	g.Blocks = append(g.Blocks, b)
	g.index[id] = b
	return b, nil
}

func (g *CFG) Block(id BlockID) (*BasicBlock, bool) {
	b, ok := g.index[id]
	return b, ok
}

func (g *CFG) AddFunc(fn *Function) {
	g.Funcs = append(g.Funcs, fn)
	g.funcs[fn.Entry] = fn
}

// Func returns the function whose entry block is id.
func (g *CFG) Func(entry BlockID) (*Function, bool) {
	fn, ok := g.funcs[entry]
	return fn, ok
}

func addPrev(b *BasicBlock, from BlockID) {
	if b.Prev == nil {
		b.Prev = &Vertices{Kind: Linear}
	}
	b.Prev.Targets = append(b.Prev.Targets, from)
	if len(b.Prev.Targets) > 1 {
		b.Prev.Kind = Branch
	}
}

// Link adds the linear edge from -> to on both blocks.
func (g *CFG) Link(from, to BlockID) error {
	src, ok := g.index[from]
	if !ok {
		return fmt.Errorf("%w: unknown block %s", ErrEdge, from)
	}
	dst, ok := g.index[to]
	if !ok {
		return fmt.Errorf("%w: unknown block %s", ErrEdge, to)
	}
	if src.Next != nil {
		return fmt.Errorf("%w: %s already has successors", ErrEdge, from)
	}
	src.Next = &Vertices{Kind: Linear, Targets: []BlockID{to}}
	addPrev(dst, from)
	return nil
}

// Fork adds a two-way branch on cond from -> then/els on every block.
func (g *CFG) Fork(from BlockID, cond Ref, then, els BlockID) error {
	src, ok := g.index[from]
	if !ok {
		return fmt.Errorf("%w: unknown block %s", ErrEdge, from)
	}
	if src.Next != nil {
		return fmt.Errorf("%w: %s already has successors", ErrEdge, from)
	}
	for _, id := range []BlockID{then, els} {
		dst, ok := g.index[id]
		if !ok {
			return fmt.Errorf("%w: unknown block %s", ErrEdge, id)
		}
		addPrev(dst, from)
	}
	src.Next = &Vertices{Kind: Branch, Targets: []BlockID{then, els}, Cond: cond}
	return nil
}

// Check verifies that every successor edge has its matching predecessor edge
// and the other way around.
func (g *CFG) Check() error {
	for _, b := range g.Blocks {
		for _, id := range b.Successors() {
			next, ok := g.index[id]
			if !ok || !slices.Contains(next.Predecessors(), b.ID) {
				return fmt.Errorf("%w: %s -> %s has no back edge", ErrEdge, b.ID, id)
			}
		}
		for _, id := range b.Predecessors() {
			prev, ok := g.index[id]
			if !ok || !slices.Contains(prev.Successors(), b.ID) {
				return fmt.Errorf("%w: %s <- %s has no forward edge", ErrEdge, b.ID, id)
			}
		}
	}
	return nil
}

func (g *CFG) String() string {
	var out bytes.Buffer
	for _, b := range g.Blocks {
		out.WriteString(string(b.ID))
		out.WriteString(":\n")
		for _, ins := range b.Instrs {
			out.WriteString("    ")
			out.WriteString(ins.String())
			out.WriteString("\n")
		}
		if b.Next != nil {
			if b.Next.Kind == Branch {
				fmt.Fprintf(&out, "    if %s -> %s\n", b.Next.Cond, strings.Join(ids(b.Next.Targets), " | "))
			} else {
				fmt.Fprintf(&out, "    -> %s\n", b.Next.Targets[0])
			}
		}
	}
	return out.String()
}

func ids(targets []BlockID) []string {
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		out = append(out, string(t))
	}
	return out
}
