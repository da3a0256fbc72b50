package types

import (
	"strings"
)

type Kind int

const (
	VoidKind Kind = iota
	IntKind
	PtrKind
	FuncKind
)

// Type designates the static type of a symbol.
type Type interface {
	String() string
	Kind() Kind
}

// Int is an integer type of a given C-style rank.
type Int struct {
	Name  string
	Width uint32
}

func (i Int) String() string { return i.Name }
func (i Int) Kind() Kind     { return IntKind }

type Void struct{}

func (Void) String() string { return "void" }
func (Void) Kind() Kind     { return VoidKind }

// Ptr points to Elem.
type Ptr struct {
	Elem Type
}

func (p Ptr) String() string { return "*" + p.Elem.String() }
func (p Ptr) Kind() Kind     { return PtrKind }

// Func is a function signature.
type Func struct {
	Ret    Type
	Name   string
	Params []Type
}

func (f Func) Kind() Kind { return FuncKind }

func (f Func) String() string {
	var sb strings.Builder
	sb.WriteString(f.Ret.String())
	sb.WriteByte(' ')
	sb.WriteString(f.Name)
	sb.WriteByte('(')
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

var (
	Char     Type = Int{Name: "char", Width: 8}
	Short    Type = Int{Name: "short", Width: 16}
	Integer  Type = Int{Name: "int", Width: 32}
	Long     Type = Int{Name: "long", Width: 64}
	LongLong Type = Int{Name: "longlong", Width: 64}
	Nothing  Type = Void{}
	String   Type = Ptr{Elem: Char}
)

var reservedTypes = map[string]Type{
	"char":     Char,
	"short":    Short,
	"int":      Integer,
	"long":     Long,
	"longlong": LongLong,
	"void":     Nothing,
	"string":   String,
}

var reservedTypeNames = []string{
	"char",
	"short",
	"int",
	"long",
	"longlong",
	"void",
	"string",
}

// ReservedTypeNames returns a copy of source-level reserved type names.
func ReservedTypeNames() []string {
	return append([]string(nil), reservedTypeNames...)
}

// IsReservedTypeName reports whether name is reserved for built-in types.
func IsReservedTypeName(name string) bool {
	_, ok := reservedTypes[name]
	return ok
}

// Lookup resolves a type designator written as an atom (`:int`, `:string`).
// A leading `*` makes a pointer: `:*char`.
func Lookup(name string) (Type, bool) {
	if elem, ok := strings.CutPrefix(name, "*"); ok {
		t, ok := Lookup(elem)
		if !ok {
			return nil, false
		}
		return Ptr{Elem: t}, true
	}
	t, ok := reservedTypes[name]
	return t, ok
}

// ForInt returns the narrowest of int and long that holds v.
func ForInt(v int64) Type {
	if v >= -1<<31 && v < 1<<31 {
		return Integer
	}
	return Long
}
