package compiler

import (
	"errors"
	"fmt"

	"github.com/thiremani/sexpc/ast"
)

var (
	ErrArity       = errors.New("wrong number of arguments")
	ErrNotCallable = errors.New("not callable")
	ErrNotValue    = errors.New("not a value")
)

// CompileError ties a semantic error to a source offset.
type CompileError struct {
	Offset int
	Msg    string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%d: %s", e.Offset, e.Msg)
}

func (e *CompileError) Unwrap() error { return e.Err }

func compileErrorf(offset int, err error, format string, args ...any) *CompileError {
	return &CompileError{Offset: offset, Msg: fmt.Sprintf(format, args...), Err: err}
}

type lowerer struct {
	g     *CFG
	b     *Bindings
	decls map[*ast.Func]*Function
	sigs  map[Ref]*Function

	declared map[Ref]bool // variables whose let has been lowered

	cur   *BasicBlock
	fn    *Function // nil for top-level code
	scope ScopeID
	done  bool // cur ended with a return
	seq   int
}

// BuildCFG lowers prog into a control-flow graph. It requires the bindings
// produced by BuildSymbols for the same program.
func BuildCFG(prog *ast.Program, b *Bindings) (*CFG, error) {
	l := &lowerer{
		g:     NewCFG(),
		b:     b,
		decls:    map[*ast.Func]*Function{},
		sigs:     map[Ref]*Function{},
		declared: map[Ref]bool{},
		scope:    GlobalScope,
	}

	entry, err := l.g.NewBlock(EntryBlock)
	if err != nil {
		return nil, err
	}
	if err := l.declareFuncs(prog.Statements, GlobalScope); err != nil {
		return nil, err
	}

	l.cur = entry
	for _, stmt := range prog.Statements {
		if err := l.lowerStatement(stmt); err != nil {
			return nil, err
		}
	}
	return l.g, nil
}

// declareFuncs creates entry and exit blocks for every function up front so
// calls may appear before the definition.
func (l *lowerer) declareFuncs(stmts []ast.Statement, scope ScopeID) error {
	for _, stmt := range stmts {
		fn, ok := stmt.(*ast.Func)
		if !ok {
			continue
		}
		body, ok := l.b.Bodies[fn]
		if !ok {
			return compileErrorf(fn.Pos(), ErrUndefined, "function %s has no bindings", fn.Def.Name.Literal)
		}
		label := l.b.Map.Scope(body).Label
		f := &Function{
			Name:   fn.Def.Name.Literal,
			Entry:  BlockID(label),
			Exit:   BlockID(label + ".exit"),
			Body:   body,
			Result: Ref{Scope: scope, Name: fn.Def.Name.Literal},
		}
		for _, p := range fn.Def.Params {
			f.Params = append(f.Params, Ref{Scope: scope, Name: p.Name.Literal})
		}
		if _, err := l.g.NewBlock(f.Entry); err != nil {
			return compileErrorf(fn.Pos(), ErrAlreadyExists, "%v", err)
		}
		if _, err := l.g.NewBlock(f.Exit); err != nil {
			return compileErrorf(fn.Pos(), ErrAlreadyExists, "%v", err)
		}
		l.g.AddFunc(f)
		l.decls[fn] = f
		l.sigs[f.Result] = f

		if err := l.declareFuncs(fn.Body, body); err != nil {
			return err
		}
	}
	return nil
}

func (l *lowerer) prefix() string {
	if l.fn == nil {
		return string(EntryBlock)
	}
	return string(l.fn.Entry)
}

func (l *lowerer) newBlock(kind string) (*BasicBlock, error) {
	id := BlockID(fmt.Sprintf("%s.%s%d", l.prefix(), kind, l.seq))
	return l.g.NewBlock(id)
}

func (l *lowerer) lowerFunc(fn *ast.Func) error {
	f := l.decls[fn]
	entry, _ := l.g.Block(f.Entry)

	cur, outer, scope, done := l.cur, l.fn, l.scope, l.done
	defer func() {
		l.cur, l.fn, l.scope, l.done = cur, outer, scope, done
	}()

	l.cur, l.fn, l.scope, l.done = entry, f, f.Body, false
	for _, stmt := range fn.Body {
		if err := l.lowerStatement(stmt); err != nil {
			return err
		}
	}
	if !l.done {
		return l.g.Link(l.cur.ID, f.Exit)
	}
	return nil
}

func (l *lowerer) lowerStatement(stmt ast.Statement) error {
	if l.done {
		// code after a return gets a block with no predecessors
		blk, err := l.newBlock("dead")
		if err != nil {
			return err
		}
		l.seq++
		l.cur, l.done = blk, false
	}

	switch s := stmt.(type) {
	case *ast.Func:
		return l.lowerFunc(s)
	case *ast.VarDec:
		dest := Ref{Scope: l.scope, Name: s.Name.Literal}
		if ie, ok := s.Value.(*ast.InfixExpression); ok {
			if err := l.lowerInfix(ie, dest); err != nil {
				return err
			}
		} else {
			src, err := l.lowerExpression(s.Value)
			if err != nil {
				return err
			}
			l.cur.Emit(Move{Dest: dest, Src: src})
		}
		l.declared[dest] = true
		return nil
	case *ast.Return:
		if l.fn == nil {
			return compileErrorf(s.Pos(), ErrNotValue, "return outside of a function")
		}
		src, err := l.lowerExpression(s.Value)
		if err != nil {
			return err
		}
		l.cur.Emit(Move{Dest: l.fn.Result, Src: src})
		l.cur.Emit(Goto{Target: l.fn.Exit})
		l.done = true
		return l.g.Link(l.cur.ID, l.fn.Exit)
	case *ast.ExpressionStatement:
		_, err := l.lowerExpression(s.Expression)
		return err
	}
	return fmt.Errorf("unsupported statement %T", stmt)
}

func (l *lowerer) temp(exp ast.Expression) (Ref, error) {
	ref, ok := l.b.Temp(exp)
	if !ok {
		return Ref{}, compileErrorf(exp.Pos(), ErrUndefined, "no temporary bound for %s", exp)
	}
	return ref, nil
}

func (l *lowerer) lowerExpression(exp ast.Expression) (Ref, error) {
	switch e := exp.(type) {
	case *ast.Identifier:
		ref, sym, err := l.b.Map.Lookup(l.scope, e.Token.Literal)
		if err != nil {
			return Ref{}, &UndefinedError{Name: e.Token.Literal, Offset: e.Pos()}
		}
		if sym.Role == FunctionSignature {
			return Ref{}, compileErrorf(e.Pos(), ErrNotValue, "function %s used as a value", e.Token.Literal)
		}
		// variables are usable only after their let
		if sym.Role == Variable && !l.declared[ref] {
			return Ref{}, &UndefinedError{Name: e.Token.Literal, Offset: e.Pos()}
		}
		return ref, nil
	case *ast.IntegerLiteral, *ast.StringLiteral, *ast.NilLiteral:
		ref, err := l.temp(exp)
		if err != nil {
			return Ref{}, err
		}
		sym, _ := l.b.Map.Get(ref)
		l.cur.Emit(SingleAssign{Dest: ref, Source: sym})
		return ref, nil
	case *ast.InfixExpression:
		dest, err := l.temp(exp)
		if err != nil {
			return Ref{}, err
		}
		return dest, l.lowerInfix(e, dest)
	case *ast.IfExpression:
		return l.lowerIf(e)
	case *ast.CallExpression:
		return l.lowerCall(e)
	}
	return Ref{}, fmt.Errorf("unsupported expression %T", exp)
}

func (l *lowerer) lowerInfix(e *ast.InfixExpression, dest Ref) error {
	left, err := l.lowerExpression(e.Left)
	if err != nil {
		return err
	}
	right, err := l.lowerExpression(e.Right)
	if err != nil {
		return err
	}
	l.cur.Emit(BinAssign{Dest: dest, Left: left, Right: right, Op: e.Operator})
	return nil
}

// lowerIf splits the current block into then, else and join blocks. Both arms
// move their value into the result temporary.
func (l *lowerer) lowerIf(e *ast.IfExpression) (Ref, error) {
	dest, err := l.temp(e)
	if err != nil {
		return Ref{}, err
	}
	cond, err := l.lowerExpression(e.Cond)
	if err != nil {
		return Ref{}, err
	}

	then, err := l.newBlock("then")
	if err != nil {
		return Ref{}, err
	}
	els, err := l.newBlock("else")
	if err != nil {
		return Ref{}, err
	}
	join, err := l.newBlock("join")
	if err != nil {
		return Ref{}, err
	}
	l.seq++
	if err := l.g.Fork(l.cur.ID, cond, then.ID, els.ID); err != nil {
		return Ref{}, err
	}

	arms := []struct {
		blk *BasicBlock
		exp ast.Expression
	}{{then, e.Then}, {els, e.Else}}
	for _, arm := range arms {
		l.cur = arm.blk
		v, err := l.lowerExpression(arm.exp)
		if err != nil {
			return Ref{}, err
		}
		l.cur.Emit(Move{Dest: dest, Src: v})
		if err := l.g.Link(l.cur.ID, join.ID); err != nil {
			return Ref{}, err
		}
	}
	l.cur = join
	return dest, nil
}

func (l *lowerer) resolveCall(e *ast.CallExpression) (BlockID, arity, error) {
	name := e.Function.Literal
	if e.Extension {
		if name != SyscallExtension {
			return "", arity{}, compileErrorf(e.Pos(), ErrNotCallable, "unknown extension #%s", name)
		}
		return BuiltinSyscall, arity{1, 1 + SyscallArgs}, nil
	}

	ref, sym, err := l.b.Map.Lookup(l.scope, name)
	if err == nil {
		if sym.Role != FunctionSignature {
			return "", arity{}, compileErrorf(e.Pos(), ErrNotCallable, "%s is a %s, not a function", name, sym.Role)
		}
		f := l.sigs[ref]
		return f.Entry, arity{len(f.Params), len(f.Params)}, nil
	}
	if b, ok := Builtins[name]; ok {
		return b.Target, b.arity, nil
	}
	return "", arity{}, &UndefinedError{Name: name, Offset: e.Pos()}
}

func (l *lowerer) lowerCall(e *ast.CallExpression) (Ref, error) {
	target, ar, err := l.resolveCall(e)
	if err != nil {
		return Ref{}, err
	}
	n := len(e.Arguments)
	if n < ar.min || (ar.max >= 0 && n > ar.max) {
		want := fmt.Sprint(ar.min)
		if ar.max != ar.min {
			want = fmt.Sprintf("%d to %d", ar.min, ar.max)
			if ar.max < 0 {
				want = fmt.Sprintf("at least %d", ar.min)
			}
		}
		return Ref{}, compileErrorf(e.Pos(), ErrArity, "%s expects %s arguments, got %d", e.Function, want, n)
	}

	dest, err := l.temp(e)
	if err != nil {
		return Ref{}, err
	}
	args := make([]Ref, 0, n)
	for _, arg := range e.Arguments {
		ref, err := l.lowerExpression(arg)
		if err != nil {
			return Ref{}, err
		}
		args = append(args, ref)
	}
	l.cur.Emit(Call{Target: target, Args: args, Result: &dest})
	return dest, nil
}
