package compiler

import "github.com/thiremani/sexpc/ast"

// opFunc folds an operator over two known integers.
type opFunc func(left, right int64) (int64, error)

func truth(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// defaultOps maps each operator to its compile-time evaluation. Comparisons
// yield 1 or 0.
var defaultOps = map[ast.BinOp]opFunc{
	ast.Add: func(l, r int64) (int64, error) { return l + r, nil },
	ast.Sub: func(l, r int64) (int64, error) { return l - r, nil },
	ast.Mul: func(l, r int64) (int64, error) { return l * r, nil },
	ast.Div: func(l, r int64) (int64, error) {
		if r == 0 {
			return 0, ErrDivideByZero
		}
		return l / r, nil
	},
	ast.Eq: func(l, r int64) (int64, error) { return truth(l == r), nil },
	ast.Lt: func(l, r int64) (int64, error) { return truth(l < r), nil },
	ast.Gt: func(l, r int64) (int64, error) { return truth(l > r), nil },
}
