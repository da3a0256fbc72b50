package parser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/thiremani/sexpc/ast"
	"github.com/thiremani/sexpc/token"
	"github.com/thiremani/sexpc/types"
)

const (
	DEFUN  = "defun"
	LET    = "let"
	RETURN = "return"
	IF     = "if"
)

var ErrMalformed = errors.New("malformed form")

// FormError reports a well-parenthesized form that does not fit the grammar.
type FormError struct {
	Offset int
	Msg    string
}

func (e *FormError) Error() string {
	return fmt.Sprintf("%d: %v: %s", e.Offset, ErrMalformed, e.Msg)
}

func (e *FormError) Unwrap() error {
	return ErrMalformed
}

// FormReader turns arena trees into typed program forms.
type FormReader struct {
	arena *ast.Arena
	depth int // function nesting
}

func NewFormReader(arena *ast.Arena) *FormReader {
	return &FormReader{arena: arena}
}

// ReadProgram reads every root in order and stops at the first error.
func ReadProgram(arena *ast.Arena, roots []ast.NodeID) (*ast.Program, error) {
	fr := NewFormReader(arena)
	program := &ast.Program{Statements: []ast.Statement{}}
	for _, root := range roots {
		stmt, err := fr.ReadStatement(root)
		if err != nil {
			return nil, err
		}
		program.Statements = append(program.Statements, stmt)
	}
	return program, nil
}

// Parse runs the parser over the whole input and reads the resulting forms.
func (p *Parser) Parse() (*ast.Program, error) {
	roots, err := p.ParseAll()
	if err != nil {
		return nil, err
	}
	return ReadProgram(p.arena, roots)
}

func (fr *FormReader) errorf(offset int, format string, args ...any) error {
	return &FormError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

func headSymbol(v ast.View) (token.Lexeme, bool) {
	if v.Len() == 0 {
		return token.Lexeme{}, false
	}
	head := v.Child(0)
	if head.IsList || head.Item.Kind != token.Symbol {
		return token.Lexeme{}, false
	}
	return head.Item, true
}

// ReadStatement reads the list id as a statement.
func (fr *FormReader) ReadStatement(id ast.NodeID) (ast.Statement, error) {
	v := fr.arena.View(id)
	if v.Len() == 0 {
		return nil, fr.errorf(v.Open(), "empty form")
	}

	if head, ok := headSymbol(v); ok {
		switch head.Literal {
		case DEFUN:
			return fr.readFunc(v)
		case LET:
			return fr.readVarDec(v)
		case RETURN:
			return fr.readReturn(v)
		}
	}

	exp, err := fr.readList(v)
	if err != nil {
		return nil, err
	}
	return &ast.ExpressionStatement{Expression: exp}, nil
}

func (fr *FormReader) readFunc(v ast.View) (ast.Statement, error) {
	def := &ast.FuncDef{Open: v.Open(), Ret: types.Nothing}
	i := 1

	if i < v.Len() && !v.Child(i).IsList && v.Child(i).Item.Kind == token.Atom {
		t, err := fr.readType(v.Child(i).Item)
		if err != nil {
			return nil, err
		}
		def.Ret = t
		i++
	}

	if i >= v.Len() || v.Child(i).IsList || v.Child(i).Item.Kind != token.Symbol {
		return nil, fr.errorf(v.Open(), "defun expects a function name")
	}
	def.Name = v.Child(i).Item
	if err := fr.checkName(def.Name); err != nil {
		return nil, err
	}
	i++

	if i >= v.Len() || !v.Child(i).IsList {
		return nil, fr.errorf(def.Name.Offset(), "defun %s expects a parameter list", def.Name.Literal)
	}
	params, err := fr.readParams(fr.arena.View(v.Child(i).List))
	if err != nil {
		return nil, err
	}
	def.Params = params
	i++

	fn := &ast.Func{Def: def, Body: []ast.Statement{}}
	fr.depth++
	defer func() { fr.depth-- }()
	for ; i < v.Len(); i++ {
		stmt, err := fr.readBodyStatement(v.Child(i))
		if err != nil {
			return nil, err
		}
		fn.Body = append(fn.Body, stmt)
	}
	return fn, nil
}

func (fr *FormReader) readBodyStatement(c ast.Child) (ast.Statement, error) {
	if c.IsList {
		return fr.ReadStatement(c.List)
	}
	exp, err := fr.readItem(c.Item)
	if err != nil {
		return nil, err
	}
	return &ast.ExpressionStatement{Expression: exp}, nil
}

// readParams reads `(:type a b :type c)`. A type applies to the next name only;
// names without a type are ints.
func (fr *FormReader) readParams(v ast.View) ([]*ast.Param, error) {
	params := []*ast.Param{}
	var pending types.Type
	pendingAt := 0
	for i := 0; i < v.Len(); i++ {
		c := v.Child(i)
		if c.IsList {
			return nil, fr.errorf(fr.arena.View(c.List).Open(), "nested list in parameter list")
		}
		switch c.Item.Kind {
		case token.Atom:
			if pending != nil {
				return nil, fr.errorf(c.Item.Offset(), "type %s follows type %s without a parameter name", c.Item, pending)
			}
			t, err := fr.readType(c.Item)
			if err != nil {
				return nil, err
			}
			pending, pendingAt = t, c.Item.Offset()
		case token.Symbol:
			if err := fr.checkName(c.Item); err != nil {
				return nil, err
			}
			t := pending
			if t == nil {
				t = types.Integer
			}
			params = append(params, &ast.Param{Type: t, Name: c.Item})
			pending = nil
		default:
			return nil, fr.errorf(c.Item.Offset(), "unexpected %s in parameter list", c.Item)
		}
	}
	if pending != nil {
		return nil, fr.errorf(pendingAt, "type %s has no parameter name", pending)
	}
	return params, nil
}

func (fr *FormReader) readVarDec(v ast.View) (ast.Statement, error) {
	vd := &ast.VarDec{Open: v.Open()}
	i := 1
	if i < v.Len() && !v.Child(i).IsList && v.Child(i).Item.Kind == token.Atom {
		t, err := fr.readType(v.Child(i).Item)
		if err != nil {
			return nil, err
		}
		vd.Type = t
		i++
	}
	if i >= v.Len() || v.Child(i).IsList || v.Child(i).Item.Kind != token.Symbol {
		return nil, fr.errorf(v.Open(), "let expects a variable name")
	}
	vd.Name = v.Child(i).Item
	if err := fr.checkName(vd.Name); err != nil {
		return nil, err
	}
	i++
	if i != v.Len()-1 {
		return nil, fr.errorf(v.Open(), "let %s expects exactly one value", vd.Name.Literal)
	}
	exp, err := fr.readExpression(v.Child(i))
	if err != nil {
		return nil, err
	}
	vd.Value = exp
	if vd.Type == nil {
		vd.Type = inferType(exp)
	}
	return vd, nil
}

func inferType(exp ast.Expression) types.Type {
	switch e := exp.(type) {
	case *ast.StringLiteral:
		return types.String
	case *ast.IntegerLiteral:
		return types.ForInt(e.Value)
	}
	return types.Integer
}

func (fr *FormReader) readReturn(v ast.View) (ast.Statement, error) {
	if fr.depth == 0 {
		return nil, fr.errorf(v.Open(), "return outside of a function")
	}
	ret := &ast.Return{Open: v.Open()}
	switch v.Len() {
	case 1:
		ret.Value = &ast.NilLiteral{Token: token.Lexeme{Kind: token.Nil, Range: token.Range{Start: v.Open(), End: v.Open()}}}
	case 2:
		exp, err := fr.readExpression(v.Child(1))
		if err != nil {
			return nil, err
		}
		ret.Value = exp
	default:
		return nil, fr.errorf(v.Open(), "return expects at most one value")
	}
	return ret, nil
}

func (fr *FormReader) readExpression(c ast.Child) (ast.Expression, error) {
	if c.IsList {
		return fr.readList(fr.arena.View(c.List))
	}
	return fr.readItem(c.Item)
}

func (fr *FormReader) readItem(lex token.Lexeme) (ast.Expression, error) {
	switch lex.Kind {
	case token.String:
		return &ast.StringLiteral{Token: lex}, nil
	case token.Nil:
		return &ast.NilLiteral{Token: lex}, nil
	case token.Symbol:
		if isNumber(lex.Literal) {
			val, err := strconv.ParseInt(lex.Literal, 0, 64)
			if err != nil {
				return nil, fr.errorf(lex.Offset(), "could not parse %q as integer", lex.Literal)
			}
			return &ast.IntegerLiteral{Token: lex, Value: val}, nil
		}
		return &ast.Identifier{Token: lex}, nil
	case token.Atom:
		return nil, fr.errorf(lex.Offset(), "type designator %s used as a value", lex)
	}
	return nil, fr.errorf(lex.Offset(), "extension %s used as a value", lex)
}

// IsTempName reports whether name has the t<N> shape the compiler gives to
// temporaries. Such names cannot be declared in source.
func IsTempName(name string) bool {
	if len(name) < 2 || name[0] != 't' {
		return false
	}
	for i := 1; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return true
}

func (fr *FormReader) checkName(lex token.Lexeme) error {
	if IsTempName(lex.Literal) {
		return fr.errorf(lex.Offset(), "%s is reserved for temporaries", lex.Literal)
	}
	return nil
}

func isNumber(s string) bool {
	if len(s) > 1 && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	return len(s) > 0 && '0' <= s[0] && s[0] <= '9'
}

func (fr *FormReader) readList(v ast.View) (ast.Expression, error) {
	if v.Len() == 0 {
		return nil, fr.errorf(v.Open(), "empty form")
	}
	head := v.Child(0)
	if head.IsList {
		return nil, fr.errorf(v.Open(), "cannot call a list")
	}

	switch head.Item.Kind {
	case token.Extension:
		return fr.readCall(v, true)
	case token.Symbol:
	default:
		return nil, fr.errorf(head.Item.Offset(), "cannot call %s", head.Item)
	}

	name := head.Item.Literal
	if op, ok := ast.LookupBinOp(name); ok {
		return fr.readInfix(v, op)
	}
	switch name {
	case IF:
		return fr.readIf(v)
	case DEFUN, LET, RETURN:
		return nil, fr.errorf(v.Open(), "%s is a statement, not a value", name)
	}
	return fr.readCall(v, false)
}

func (fr *FormReader) readArgs(v ast.View, from int) ([]ast.Expression, error) {
	args := []ast.Expression{}
	for i := from; i < v.Len(); i++ {
		exp, err := fr.readExpression(v.Child(i))
		if err != nil {
			return nil, err
		}
		args = append(args, exp)
	}
	return args, nil
}

func (fr *FormReader) readInfix(v ast.View, op ast.BinOp) (ast.Expression, error) {
	if v.Len() != 3 {
		return nil, fr.errorf(v.Open(), "operator %s expects 2 operands, got %d", op, v.Len()-1)
	}
	args, err := fr.readArgs(v, 1)
	if err != nil {
		return nil, err
	}
	return &ast.InfixExpression{Open: v.Open(), Operator: op, Left: args[0], Right: args[1]}, nil
}

func (fr *FormReader) readIf(v ast.View) (ast.Expression, error) {
	if v.Len() != 3 && v.Len() != 4 {
		return nil, fr.errorf(v.Open(), "if expects a condition, a value and an optional alternative")
	}
	args, err := fr.readArgs(v, 1)
	if err != nil {
		return nil, err
	}
	ie := &ast.IfExpression{Open: v.Open(), Cond: args[0], Then: args[1]}
	if len(args) == 3 {
		ie.Else = args[2]
	} else {
		ie.Else = &ast.NilLiteral{Token: token.Lexeme{Kind: token.Nil, Range: token.Range{Start: v.Open(), End: v.Open()}}}
	}
	return ie, nil
}

func (fr *FormReader) readCall(v ast.View, ext bool) (ast.Expression, error) {
	args, err := fr.readArgs(v, 1)
	if err != nil {
		return nil, err
	}
	return &ast.CallExpression{
		Open:      v.Open(),
		Function:  v.Child(0).Item,
		Arguments: args,
		Extension: ext,
	}, nil
}

func (fr *FormReader) readType(lex token.Lexeme) (types.Type, error) {
	t, ok := types.Lookup(lex.Literal)
	if !ok {
		return nil, fr.errorf(lex.Offset(), "unknown type %s", lex)
	}
	return t, nil
}
