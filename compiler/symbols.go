package compiler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/thiremani/sexpc/ast"
	"github.com/thiremani/sexpc/types"
)

var (
	ErrAlreadyExists = errors.New("already declared")
	ErrUndefined     = errors.New("undefined")
)

// Role says how a name came to be bound.
type Role int

const (
	Variable Role = iota
	Parameter
	Argument
	FunctionSignature
)

var roleNames = [...]string{
	Variable:          "Variable",
	Parameter:         "Parameter",
	Argument:          "Argument",
	FunctionSignature: "FunctionSignature",
}

func (r Role) String() string {
	return roleNames[r]
}

// Value is a literal known when the symbol is declared.
type Value struct {
	Int   int64
	Str   string
	IsStr bool
}

func IntValue(v int64) *Value  { return &Value{Int: v} }
func StrValue(s string) *Value { return &Value{Str: s, IsStr: true} }

func (v *Value) String() string {
	if v.IsStr {
		return strconv.Quote(v.Str)
	}
	return strconv.FormatInt(v.Int, 10)
}

type Symbol struct {
	Type  types.Type
	Role  Role
	Value *Value // nil when not a literal
}

func (s *Symbol) String() string {
	val := "-"
	if s.Value != nil {
		val = s.Value.String()
	}
	return fmt.Sprintf("%s | %s | %s", s.Type, s.Role, val)
}

// AlreadyExistsError is returned by SymbolTable.Insert for a name bound twice
// in one scope. Prior is the symbol that stays in the table.
type AlreadyExistsError struct {
	Name  string
	Scope string
	New   *Symbol
	Prior *Symbol
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %v in scope %s as %s %s (redeclared as %s %s)",
		e.Name, ErrAlreadyExists, e.Scope, e.Prior.Role, e.Prior.Type, e.New.Role, e.New.Type)
}

func (e *AlreadyExistsError) Unwrap() error { return ErrAlreadyExists }

type UndefinedError struct {
	Name   string
	Offset int // -1 when unknown
}

func (e *UndefinedError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%s is %v", e.Name, ErrUndefined)
	}
	return fmt.Sprintf("%d: %s is %v", e.Offset, e.Name, ErrUndefined)
}

func (e *UndefinedError) Unwrap() error { return ErrUndefined }

// Bindings is the result of BuildSymbols.
type Bindings struct {
	Map *SymbolMap
	// Temps holds the temporary bound to each literal and intermediate result.
	Temps map[ast.Expression]Ref
	// Bodies holds the scope opened for each function body.
	Bodies map[*ast.Func]ScopeID
}

// Temp returns the temporary bound to exp.
func (b *Bindings) Temp(exp ast.Expression) (Ref, bool) {
	r, ok := b.Temps[exp]
	return r, ok
}

type binder struct {
	b *Bindings
}

// BuildSymbols declares every name in prog. Each top-level form is inserted on
// its own: an error aborts that form and is collected, while the following
// forms are still inserted. The returned error joins all collected errors.
func BuildSymbols(prog *ast.Program) (*Bindings, error) {
	bd := &binder{b: &Bindings{
		Map:    NewSymbolMap(),
		Temps:  map[ast.Expression]Ref{},
		Bodies: map[*ast.Func]ScopeID{},
	}}

	var errs []error
	for _, stmt := range prog.Statements {
		if err := bd.insertStatement(GlobalScope, stmt); err != nil {
			errs = append(errs, err)
		}
	}
	return bd.b, errors.Join(errs...)
}

func (bd *binder) insert(scope ScopeID, name string, sym *Symbol) (Ref, error) {
	if err := bd.b.Map.Scope(scope).Insert(name, sym); err != nil {
		return Ref{}, err
	}
	return Ref{Scope: scope, Name: name}, nil
}

func (bd *binder) insertStatement(scope ScopeID, stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.Func:
		return bd.insertFunc(scope, s)
	case *ast.VarDec:
		if err := bd.insertExpression(scope, s.Value, Variable, true); err != nil {
			return err
		}
		_, err := bd.insert(scope, s.Name.Literal, &Symbol{Type: s.Type, Role: Variable, Value: literalValue(s.Value)})
		return err
	case *ast.Return:
		return bd.insertExpression(scope, s.Value, Variable, false)
	case *ast.ExpressionStatement:
		return bd.insertExpression(scope, s.Expression, Variable, false)
	}
	return fmt.Errorf("unsupported statement %T", stmt)
}

// insertFunc binds the parameters and then the signature in the enclosing
// scope, then inserts the body into a fresh child scope.
func (bd *binder) insertFunc(scope ScopeID, fn *ast.Func) error {
	for _, p := range fn.Def.Params {
		if _, err := bd.insert(scope, p.Name.Literal, &Symbol{Type: p.Type, Role: Parameter}); err != nil {
			return err
		}
	}
	sig := fn.Def.Signature()
	if _, err := bd.insert(scope, fn.Def.Name.Literal, &Symbol{Type: sig, Role: FunctionSignature}); err != nil {
		return err
	}

	body := bd.b.Map.Push(fn.Def.Name.Literal, scope)
	bd.b.Bodies[fn] = body
	for _, stmt := range fn.Body {
		if err := bd.insertStatement(body, stmt); err != nil {
			return err
		}
	}
	return nil
}

// insertExpression binds temporaries for literals and intermediate results in
// post-order. A named root stores straight into the declared variable and gets
// no temporary of its own.
func (bd *binder) insertExpression(scope ScopeID, exp ast.Expression, role Role, named bool) error {
	switch e := exp.(type) {
	case *ast.Identifier:
		return nil
	case *ast.IntegerLiteral, *ast.StringLiteral, *ast.NilLiteral:
		return bd.insertTemp(scope, exp, &Symbol{Type: literalType(exp), Role: role, Value: literalValue(exp)})
	case *ast.InfixExpression:
		lerr := bd.insertExpression(scope, e.Left, Variable, false)
		rerr := bd.insertExpression(scope, e.Right, Variable, false)
		if err := errors.Join(lerr, rerr); err != nil {
			return err
		}
		if named {
			return nil
		}
		return bd.insertTemp(scope, exp, &Symbol{Type: types.Integer, Role: Variable})
	case *ast.IfExpression:
		for _, part := range []ast.Expression{e.Cond, e.Then, e.Else} {
			if err := bd.insertExpression(scope, part, Variable, false); err != nil {
				return err
			}
		}
		return bd.insertTemp(scope, exp, &Symbol{Type: types.Integer, Role: Variable})
	case *ast.CallExpression:
		for _, arg := range e.Arguments {
			if err := bd.insertExpression(scope, arg, Argument, false); err != nil {
				return err
			}
		}
		return bd.insertTemp(scope, exp, &Symbol{Type: types.Long, Role: Variable})
	}
	return fmt.Errorf("unsupported expression %T", exp)
}

func (bd *binder) insertTemp(scope ScopeID, exp ast.Expression, sym *Symbol) error {
	name := bd.b.Map.Scope(scope).TempName()
	ref, err := bd.insert(scope, name, sym)
	if err != nil {
		return err
	}
	bd.b.Temps[exp] = ref
	return nil
}

func literalType(exp ast.Expression) types.Type {
	switch e := exp.(type) {
	case *ast.StringLiteral:
		return types.String
	case *ast.IntegerLiteral:
		return types.ForInt(e.Value)
	}
	return types.Integer
}

func literalValue(exp ast.Expression) *Value {
	switch e := exp.(type) {
	case *ast.StringLiteral:
		return StrValue(e.Token.Literal)
	case *ast.IntegerLiteral:
		return IntValue(e.Value)
	case *ast.NilLiteral:
		return IntValue(0)
	}
	return nil
}
