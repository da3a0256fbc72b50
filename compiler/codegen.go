package compiler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/thiremani/sexpc/asm"
	"github.com/thiremani/sexpc/config"
)

var (
	ErrNotConstant       = errors.New("value is not known at compile time")
	ErrDivideByZero      = errors.New("division by zero")
	ErrRecursion         = errors.New("recursive call")
	ErrType              = errors.New("type mismatch")
	ErrUnsupportedTarget = errors.New("unsupported target")
)

// AssemblyError is a code generation failure inside Block.
type AssemblyError struct {
	Block BlockID
	Msg   string
	Err   error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("codegen %s: %s", e.Block, e.Msg)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

const (
	StartLabel = "_start"
	MainLabel  = "main"
)

// generator walks the CFG in execution order. The target instruction set has
// no arithmetic or jumps, so operators and branch conditions are folded from
// values known at compile time, and user calls are expanded in place.
type generator struct {
	g    *CFG
	syms *SymbolMap

	code    *asm.Segment
	data    *asm.Segment
	label   *asm.LabelDef
	strings []*asm.LabelDef

	values map[Ref]*Value
	slots  map[Ref]string
	taken  map[string]bool
	strs   map[string]string
	active map[BlockID]bool
	ran    map[BlockID]bool // functions expanded at least once

	block  BlockID
	halted bool
}

// Generate produces the FASM program for g.
func Generate(g *CFG, syms *SymbolMap, cfg config.Configuration) (*asm.Program, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &AssemblyError{Block: EntryBlock, Msg: err.Error(), Err: ErrUnsupportedTarget}
	}

	gen := &generator{
		g:      g,
		syms:   syms,
		code:   &asm.Segment{Readable: true, Executable: true},
		data:   &asm.Segment{Readable: true, Writable: true},
		values: map[Ref]*Value{},
		slots:  map[Ref]string{},
		taken:  map[string]bool{},
		strs:   map[string]string{},
		active: map[BlockID]bool{},
		ran:    map[BlockID]bool{},
	}
	gen.label = gen.code.Add(asm.Code(StartLabel))
	if err := gen.run(EntryBlock); err != nil {
		return nil, err
	}

	// main runs once; top-level code may already have called it
	if main := gen.main(); main != nil && !gen.halted && !gen.ran[main.Entry] {
		if len(main.Params) > 0 {
			return nil, gen.errorf(ErrType, "main takes no parameters, got %d", len(main.Params))
		}
		gen.label = gen.code.Add(asm.Code(MainLabel))
		if err := gen.call(main, nil, nil); err != nil {
			return nil, err
		}
	}
	if !gen.halted {
		gen.exit(asm.XorI(asm.Reg(asm.RDI), asm.Reg(asm.RDI)))
	}

	for _, s := range gen.strings {
		gen.data.Add(s)
	}
	return &asm.Program{
		Format:   asm.ELF64Executable,
		Entry:    StartLabel,
		Segments: []*asm.Segment{gen.code, gen.data},
	}, nil
}

func (gen *generator) errorf(err error, format string, args ...any) *AssemblyError {
	return &AssemblyError{Block: gen.block, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (gen *generator) main() *Function {
	for _, fn := range gen.g.Funcs {
		if fn.Name == MainLabel && fn.Result.Scope == GlobalScope {
			return fn
		}
	}
	return nil
}

func (gen *generator) emit(ins ...asm.Instruction) {
	gen.label.Emit(ins...)
}

// slot returns the data label that holds r, defining it on first use.
func (gen *generator) slot(r Ref) string {
	if name, ok := gen.slots[r]; ok {
		return name
	}
	name := slotName(gen.syms.Scope(r.Scope).Label, r.Name)
	for base, n := name, 1; gen.taken[name]; n++ {
		name = base + "_" + strconv.Itoa(n)
	}
	gen.taken[name] = true
	gen.slots[r] = name
	gen.data.Add(asm.Data(name, asm.Dq, "0"))
	return name
}

// str returns the data label holding text. Equal texts share a label.
func (gen *generator) str(text string) string {
	if name, ok := gen.strs[text]; ok {
		return name
	}
	name := "str" + strconv.Itoa(len(gen.strings))
	gen.strs[text] = name
	gen.strings = append(gen.strings, asm.Data(name, asm.Db, asm.Bytes([]byte(text))))
	return name
}

func (gen *generator) mem(r Ref) asm.Operand {
	return asm.Ptr(asm.Label(gen.slot(r)))
}

// load puts the value of r in reg, as an immediate when it is known.
func (gen *generator) load(reg asm.Register, r Ref) {
	dst := asm.Reg(reg)
	v, ok := gen.values[r]
	switch {
	case !ok:
		gen.emit(asm.MovI(dst, gen.mem(r)))
	case v.IsStr:
		gen.emit(asm.LeaI(dst, asm.Ptr(asm.Label(gen.str(v.Str)))))
	case v.Int == 0:
		gen.emit(asm.XorI(dst, dst))
	default:
		gen.emit(asm.MovI(dst, asm.Int(v.Int)))
	}
}

func (gen *generator) store(dest Ref, v *Value) {
	gen.values[dest] = v
	gen.load(asm.RAX, dest)
	gen.emit(asm.MovI(gen.mem(dest), asm.Reg(asm.RAX)))
}

func (gen *generator) move(dest, src Ref) {
	gen.emit(
		asm.MovI(asm.Reg(asm.RAX), gen.mem(src)),
		asm.MovI(gen.mem(dest), asm.Reg(asm.RAX)),
	)
	if v, ok := gen.values[src]; ok {
		gen.values[dest] = v
	} else {
		delete(gen.values, dest)
	}
}

// run executes blocks from id until control leaves the subgraph or the
// program halts.
func (gen *generator) run(id BlockID) error {
	for id != "" && !gen.halted {
		blk, ok := gen.g.Block(id)
		if !ok {
			return gen.errorf(ErrUndefined, "unknown block %s", id)
		}
		gen.block = id
		next, err := gen.instructions(blk)
		if err != nil {
			return err
		}
		id = next
	}
	return nil
}

func (gen *generator) instructions(blk *BasicBlock) (BlockID, error) {
	for _, ins := range blk.Instrs {
		if gen.halted {
			return "", nil
		}
		switch i := ins.(type) {
		case SingleAssign:
			if i.Source == nil || i.Source.Value == nil {
				return "", gen.errorf(ErrNotConstant, "%s has no literal value", i.Dest)
			}
			gen.store(i.Dest, i.Source.Value)
		case BinAssign:
			v, err := gen.fold(i)
			if err != nil {
				return "", err
			}
			gen.store(i.Dest, v)
		case Move:
			gen.move(i.Dest, i.Src)
		case Goto:
			return i.Target, nil
		case Call:
			if err := gen.callInstr(i); err != nil {
				return "", err
			}
			gen.block = blk.ID
		default:
			return "", gen.errorf(ErrType, "unknown instruction %T", ins)
		}
	}
	return gen.follow(blk)
}

func (gen *generator) follow(blk *BasicBlock) (BlockID, error) {
	if blk.Next == nil || gen.halted {
		return "", nil
	}
	if blk.Next.Kind == Linear {
		return blk.Next.Targets[0], nil
	}
	v, ok := gen.values[blk.Next.Cond]
	if !ok {
		return "", gen.errorf(ErrNotConstant, "branch condition %s", blk.Next.Cond)
	}
	if v.IsStr || v.Int != 0 {
		return blk.Next.Targets[0], nil
	}
	return blk.Next.Targets[1], nil
}

func (gen *generator) intValue(r Ref) (int64, error) {
	v, ok := gen.values[r]
	if !ok {
		return 0, gen.errorf(ErrNotConstant, "operand %s", r)
	}
	if v.IsStr {
		return 0, gen.errorf(ErrType, "operand %s is a string", r)
	}
	return v.Int, nil
}

func (gen *generator) fold(i BinAssign) (*Value, error) {
	l, err := gen.intValue(i.Left)
	if err != nil {
		return nil, err
	}
	r, err := gen.intValue(i.Right)
	if err != nil {
		return nil, err
	}
	op, ok := defaultOps[i.Op]
	if !ok {
		return nil, gen.errorf(ErrType, "unknown operator %d", i.Op)
	}
	v, err := op(l, r)
	if err != nil {
		return nil, gen.errorf(err, "%s %s %s", i.Left, i.Op, i.Right)
	}
	return IntValue(v), nil
}
