package compiler

import (
	"github.com/thiremani/sexpc/asm"
	"github.com/thiremani/sexpc/ast"
	"github.com/thiremani/sexpc/config"
	"github.com/thiremani/sexpc/lexer"
	"github.com/thiremani/sexpc/parser"
)

// Compiler runs the pipeline for one compilation unit and keeps the output of
// every stage it reached.
type Compiler struct {
	Config   config.Configuration
	Program  *ast.Program
	Bindings *Bindings
	CFG      *CFG
	Asm      *asm.Program
}

func NewCompiler(cfg config.Configuration) *Compiler {
	return &Compiler{Config: cfg}
}

// Compile lexes, parses, binds, lowers and generates source. It stops at the
// first stage that fails.
func (c *Compiler) Compile(source string) (*asm.Program, error) {
	prog, err := parser.New(lexer.New(source)).Parse()
	if err != nil {
		return nil, err
	}
	c.Program = prog

	b, err := BuildSymbols(prog)
	c.Bindings = b
	if err != nil {
		return nil, err
	}

	g, err := BuildCFG(prog, b)
	if err != nil {
		return nil, err
	}
	c.CFG = g

	out, err := Generate(g, b.Map, c.Config)
	if err != nil {
		return nil, err
	}
	c.Asm = out
	return out, nil
}

// Compile is a shorthand for NewCompiler(cfg).Compile(source).
func Compile(source string, cfg config.Configuration) (*asm.Program, error) {
	return NewCompiler(cfg).Compile(source)
}
