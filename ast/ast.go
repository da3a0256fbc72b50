package ast

import (
	"bytes"
	"strings"

	"github.com/thiremani/sexpc/token"
	"github.com/thiremani/sexpc/types"
)

// The base Node interface
type Node interface {
	Pos() int
	String() string
}

// All statement nodes implement this
type Statement interface {
	Node
	statementNode()
}

// All expression nodes implement this
type Expression interface {
	Node
	expressionNode()
}

type Program struct {
	Statements []Statement
}

func (p *Program) Pos() int {
	if len(p.Statements) > 0 {
		return p.Statements[0].Pos()
	}
	return 0
}

func (p *Program) String() string {
	var out bytes.Buffer

	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}

	return out.String()
}

func printVec[T Node](a []T) string {
	parts := make([]string, 0, len(a))
	for _, n := range a {
		parts = append(parts, n.String())
	}
	return strings.Join(parts, ", ")
}

// Statements

// VarDec binds Name to the value of Value: (let :int a (+ 5 10))
type VarDec struct {
	Open  int
	Type  types.Type
	Name  token.Lexeme
	Value Expression
}

func (vd *VarDec) statementNode() {}
func (vd *VarDec) Pos() int       { return vd.Open }
func (vd *VarDec) String() string {
	return vd.Type.String() + " " + vd.Name.Literal + " = " + vd.Value.String() + ";"
}

type Param struct {
	Type types.Type
	Name token.Lexeme
}

func (p *Param) Pos() int       { return p.Name.Offset() }
func (p *Param) String() string { return p.Type.String() + " " + p.Name.Literal }

// FuncDef is the signature part of a function definition.
type FuncDef struct {
	Open   int
	Ret    types.Type
	Name   token.Lexeme
	Params []*Param
}

func (fd *FuncDef) Pos() int { return fd.Open }
func (fd *FuncDef) String() string {
	return fd.Ret.String() + " " + fd.Name.Literal + "(" + printVec(fd.Params) + ")"
}

// Signature returns the designator stored for the function in a symbol table.
func (fd *FuncDef) Signature() types.Func {
	params := make([]types.Type, 0, len(fd.Params))
	for _, p := range fd.Params {
		params = append(params, p.Type)
	}
	return types.Func{Ret: fd.Ret, Name: fd.Name.Literal, Params: params}
}

type Func struct {
	Def  *FuncDef
	Body []Statement
}

func (f *Func) statementNode() {}
func (f *Func) Pos() int       { return f.Def.Open }
func (f *Func) String() string {
	var out bytes.Buffer

	out.WriteString(f.Def.String())
	out.WriteString(" {\n")
	for _, s := range f.Body {
		out.WriteString("    ")
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	out.WriteString("}")

	return out.String()
}

type Return struct {
	Open  int
	Value Expression
}

func (r *Return) statementNode() {}
func (r *Return) Pos() int       { return r.Open }
func (r *Return) String() string { return "return " + r.Value.String() + ";" }

// ExpressionStatement evaluates an expression for its effects.
type ExpressionStatement struct {
	Expression Expression
}

func (es *ExpressionStatement) statementNode() {}
func (es *ExpressionStatement) Pos() int       { return es.Expression.Pos() }
func (es *ExpressionStatement) String() string { return es.Expression.String() + ";" }

// Expressions

type Identifier struct {
	Token token.Lexeme
}

func (i *Identifier) expressionNode() {}
func (i *Identifier) Pos() int        { return i.Token.Offset() }
func (i *Identifier) String() string  { return i.Token.Literal }

type IntegerLiteral struct {
	Token token.Lexeme
	Value int64
}

func (il *IntegerLiteral) expressionNode() {}
func (il *IntegerLiteral) Pos() int        { return il.Token.Offset() }
func (il *IntegerLiteral) String() string  { return il.Token.Literal }

type StringLiteral struct {
	Token token.Lexeme
}

func (sl *StringLiteral) expressionNode() {}
func (sl *StringLiteral) Pos() int        { return sl.Token.Offset() }
func (sl *StringLiteral) String() string  { return sl.Token.String() }

// NilLiteral is the zero value.
type NilLiteral struct {
	Token token.Lexeme
}

func (nl *NilLiteral) expressionNode() {}
func (nl *NilLiteral) Pos() int        { return nl.Token.Offset() }
func (nl *NilLiteral) String() string  { return token.NilLiteral }

type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Eq
	Lt
	Gt
)

var binOps = [...]string{
	Add: "+",
	Sub: "-",
	Mul: "*",
	Div: "/",
	Eq:  "=",
	Lt:  "<",
	Gt:  ">",
}

func (op BinOp) String() string {
	return binOps[op]
}

// LookupBinOp maps an operator symbol to its BinOp.
func LookupBinOp(s string) (BinOp, bool) {
	for op, lit := range binOps {
		if lit == s {
			return BinOp(op), true
		}
	}
	return 0, false
}

type InfixExpression struct {
	Open     int
	Operator BinOp
	Left     Expression
	Right    Expression
}

func (ie *InfixExpression) expressionNode() {}
func (ie *InfixExpression) Pos() int        { return ie.Open }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator.String() + " " + ie.Right.String() + ")"
}

// CallExpression calls a user function or a builtin. Extension is set when
// the callee was written with the # sigil, e.g. (#syscall 60 0).
type CallExpression struct {
	Open      int
	Function  token.Lexeme
	Arguments []Expression
	Extension bool
}

func (ce *CallExpression) expressionNode() {}
func (ce *CallExpression) Pos() int        { return ce.Open }
func (ce *CallExpression) String() string {
	name := ce.Function.Literal
	if ce.Extension {
		name = string(token.ExtensionSigil) + name
	}
	return name + "(" + printVec(ce.Arguments) + ")"
}

// IfExpression yields Then when Cond is non-zero and Else otherwise.
// The form reader fills a missing Else with a NilLiteral.
type IfExpression struct {
	Open int
	Cond Expression
	Then Expression
	Else Expression
}

func (ie *IfExpression) expressionNode() {}
func (ie *IfExpression) Pos() int        { return ie.Open }
func (ie *IfExpression) String() string {
	var out bytes.Buffer

	out.WriteString("(")
	out.WriteString(ie.Cond.String())
	out.WriteString(" ? ")
	out.WriteString(ie.Then.String())
	out.WriteString(" : ")
	if ie.Else != nil {
		out.WriteString(ie.Else.String())
	} else {
		out.WriteString(token.NilLiteral)
	}
	out.WriteString(")")

	return out.String()
}
