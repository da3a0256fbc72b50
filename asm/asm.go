// Package asm models the subset of FASM source the compiler emits and renders
// it as text.
package asm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrInvalid = errors.New("invalid assembly")

type Format int

const (
	ELF64Executable Format = iota
)

func (f Format) String() string {
	switch f {
	case ELF64Executable:
		return "ELF64 executable"
	}
	return "Format(" + strconv.Itoa(int(f)) + ")"
}

type Register int

const (
	RAX Register = iota
	RDI
	RSI
	RDX
)

var registers = [...]string{
	RAX: "rax",
	RDI: "rdi",
	RSI: "rsi",
	RDX: "rdx",
}

func (r Register) String() string {
	return registers[r]
}

// SyscallRegisters lists the registers loaded for a system call: the number
// first, then the arguments.
var SyscallRegisters = []Register{RAX, RDI, RSI, RDX}

type OperandKind int

const (
	RegisterOperand OperandKind = iota
	StringOperand
	IntOperand
	LabelOperand
	PointerOperand
)

// Operand is a tagged union. Only the field matching Kind is meaningful.
type Operand struct {
	Kind  OperandKind
	Reg   Register
	Str   string
	Int   int64
	Label string
	Inner *Operand
}

func Reg(r Register) Operand    { return Operand{Kind: RegisterOperand, Reg: r} }
func Str(s string) Operand      { return Operand{Kind: StringOperand, Str: s} }
func Int(v int64) Operand       { return Operand{Kind: IntOperand, Int: v} }
func Label(name string) Operand { return Operand{Kind: LabelOperand, Label: name} }

// Ptr dereferences inner, rendered as [inner].
func Ptr(inner Operand) Operand {
	return Operand{Kind: PointerOperand, Inner: &inner}
}

type Mnemonic int

const (
	Mov Mnemonic = iota
	Lea
	Xor
	Syscall
)

var mnemonics = [...]string{
	Mov:     "mov",
	Lea:     "lea",
	Xor:     "xor",
	Syscall: "syscall",
}

func (m Mnemonic) String() string {
	return mnemonics[m]
}

// Instruction is a mnemonic with its operands. Syscall takes none; the
// others take exactly two.
type Instruction struct {
	Op          Mnemonic
	Left, Right Operand
}

func MovI(dst, src Operand) Instruction { return Instruction{Op: Mov, Left: dst, Right: src} }
func LeaI(dst, src Operand) Instruction { return Instruction{Op: Lea, Left: dst, Right: src} }
func XorI(dst, src Operand) Instruction { return Instruction{Op: Xor, Left: dst, Right: src} }
func SyscallI() Instruction             { return Instruction{Op: Syscall} }

type LabelKind int

const (
	CodeDef LabelKind = iota
	DataDef
)

type Directive int

const (
	Db Directive = iota
	Dq
)

func (d Directive) String() string {
	if d == Db {
		return "db"
	}
	return "dq"
}

// LabelDef is a named code block or a data definition.
type LabelDef struct {
	Kind         LabelKind
	Name         string
	Instructions []Instruction // CodeDef
	Directive    Directive     // DataDef
	Value        string        // DataDef, already in FASM syntax
}

func Code(name string, ins ...Instruction) *LabelDef {
	return &LabelDef{Kind: CodeDef, Name: name, Instructions: ins}
}

func Data(name string, d Directive, value string) *LabelDef {
	return &LabelDef{Kind: DataDef, Name: name, Directive: d, Value: value}
}

func (l *LabelDef) Emit(ins ...Instruction) {
	l.Instructions = append(l.Instructions, ins...)
}

type Segment struct {
	Name       string // omitted from the output when empty
	Readable   bool
	Writable   bool
	Executable bool
	Labels     []*LabelDef
}

func (s *Segment) Add(l *LabelDef) *LabelDef {
	s.Labels = append(s.Labels, l)
	return l
}

type Program struct {
	Format   Format
	Entry    string
	Segments []*Segment
}

// Bytes encodes data as a db operand: printable runs in double quotes, every
// other byte as a decimal number.
func Bytes(data []byte) string {
	var parts []string
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			parts = append(parts, `"`+run.String()+`"`)
			run.Reset()
		}
	}
	for _, c := range data {
		if c >= 0x20 && c < 0x7f && c != '"' {
			run.WriteByte(c)
			continue
		}
		flush()
		parts = append(parts, strconv.Itoa(int(c)))
	}
	flush()
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, ",")
}

// immediateString renders s as a FASM string immediate. FASM has no escapes:
// the quote is doubled, and s must be printable ASCII that fits a quadword.
func immediateString(s string) (string, error) {
	if s == "" || len(s) > 8 {
		return "", fmt.Errorf("%w: string operand %q must be 1 to 8 bytes", ErrInvalid, s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] >= 0x7f {
			return "", fmt.Errorf("%w: string operand %q has a non-printable byte", ErrInvalid, s)
		}
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'", nil
}

type renderer struct {
	w   io.Writer
	n   int64
	err error
}

func (r *renderer) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	n, err := fmt.Fprintf(r.w, format, args...)
	r.n += int64(n)
	r.err = err
}

func operand(op Operand) (string, error) {
	switch op.Kind {
	case RegisterOperand:
		if op.Reg < 0 || int(op.Reg) >= len(registers) {
			return "", fmt.Errorf("%w: register %d", ErrInvalid, op.Reg)
		}
		return op.Reg.String(), nil
	case StringOperand:
		return immediateString(op.Str)
	case IntOperand:
		return strconv.FormatInt(op.Int, 10), nil
	case LabelOperand:
		if op.Label == "" {
			return "", fmt.Errorf("%w: empty label operand", ErrInvalid)
		}
		return op.Label, nil
	case PointerOperand:
		if op.Inner == nil {
			return "", fmt.Errorf("%w: pointer without operand", ErrInvalid)
		}
		inner, err := operand(*op.Inner)
		if err != nil {
			return "", err
		}
		return "[" + inner + "]", nil
	}
	return "", fmt.Errorf("%w: operand kind %d", ErrInvalid, op.Kind)
}

func (r *renderer) instruction(ins Instruction) {
	if ins.Op == Syscall {
		r.printf("syscall\n")
		return
	}
	if ins.Op < 0 || int(ins.Op) >= len(mnemonics) {
		r.fail(fmt.Errorf("%w: mnemonic %d", ErrInvalid, ins.Op))
		return
	}
	if ins.Op == Lea && ins.Right.Kind != PointerOperand {
		r.fail(fmt.Errorf("%w: lea needs a memory operand", ErrInvalid))
		return
	}
	left, err := operand(ins.Left)
	if err != nil {
		r.fail(err)
		return
	}
	right, err := operand(ins.Right)
	if err != nil {
		r.fail(err)
		return
	}
	r.printf("%s %s,%s\n", ins.Op, left, right)
}

func (r *renderer) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *renderer) label(l *LabelDef) {
	if l.Name == "" {
		r.fail(fmt.Errorf("%w: unnamed label", ErrInvalid))
		return
	}
	switch l.Kind {
	case CodeDef:
		r.printf("%s:\n", l.Name)
		for _, ins := range l.Instructions {
			r.instruction(ins)
		}
	case DataDef:
		r.printf("%s %s %s\n", l.Name, l.Directive, l.Value)
	default:
		r.fail(fmt.Errorf("%w: label kind %d", ErrInvalid, l.Kind))
	}
}

func (r *renderer) segment(s *Segment) {
	r.printf("\nsegment")
	if s.Name != "" {
		r.printf(" %s", s.Name)
	}
	if s.Readable {
		r.printf(" readable")
	}
	if s.Writable {
		r.printf(" writable")
	}
	if s.Executable {
		r.printf(" executable")
	}
	r.printf("\n")
	for _, l := range s.Labels {
		r.label(l)
	}
}

// WriteTo renders the program. The output depends only on the program value.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	r := &renderer{w: w}
	r.printf("format %s\n", p.Format)
	if p.Entry != "" {
		r.printf("entry %s\n", p.Entry)
	}
	for _, s := range p.Segments {
		r.segment(s)
	}
	return r.n, r.err
}

// Assemble returns the rendered source text.
func (p *Program) Assemble() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String renders the program, or the render error.
func (p *Program) String() string {
	out, err := p.Assemble()
	if err != nil {
		return err.Error()
	}
	return string(out)
}
