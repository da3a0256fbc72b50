package compiler

import "github.com/thiremani/sexpc/asm"

func (gen *generator) callInstr(i Call) error {
	switch i.Target {
	case BuiltinExit:
		v, ok := gen.values[i.Args[0]]
		if ok && !v.IsStr && v.Int == 0 {
			gen.exit(asm.XorI(asm.Reg(asm.RDI), asm.Reg(asm.RDI)))
			return nil
		}
		gen.exit(asm.MovI(asm.Reg(asm.RDI), gen.mem(i.Args[0])))
		return nil
	case BuiltinPrint:
		return gen.print(i.Args)
	case BuiltinSyscall:
		return gen.syscall(i)
	}

	fn, ok := gen.g.Func(i.Target)
	if !ok {
		return gen.errorf(ErrUndefined, "call to unknown function %s", i.Target)
	}
	return gen.call(fn, i.Args, i.Result)
}

func (gen *generator) exit(status asm.Instruction) {
	gen.emit(asm.MovI(asm.Reg(asm.RAX), asm.Int(sysExit)), status, asm.SyscallI())
	gen.halted = true
}

// print writes its arguments to stdout as one line.
func (gen *generator) print(args []Ref) error {
	vals := make([]*Value, 0, len(args))
	for _, a := range args {
		v, ok := gen.values[a]
		if !ok {
			return gen.errorf(ErrNotConstant, "print argument %s", a)
		}
		vals = append(vals, v)
	}
	text := printText(vals)
	gen.emit(
		asm.MovI(asm.Reg(asm.RAX), asm.Int(sysWrite)),
		asm.MovI(asm.Reg(asm.RDI), asm.Int(stdout)),
		asm.LeaI(asm.Reg(asm.RSI), asm.Ptr(asm.Label(gen.str(text)))),
		asm.MovI(asm.Reg(asm.RDX), asm.Int(int64(len(text)))),
		asm.SyscallI(),
	)
	return nil
}

func (gen *generator) syscall(i Call) error {
	for n, arg := range i.Args {
		gen.load(asm.SyscallRegisters[n], arg)
	}
	gen.emit(asm.SyscallI())

	if v, ok := gen.values[i.Args[0]]; ok && !v.IsStr && (v.Int == sysExit || v.Int == sysExitGroup) {
		gen.halted = true
		return nil
	}
	if i.Result != nil {
		gen.emit(asm.MovI(gen.mem(*i.Result), asm.Reg(asm.RAX)))
		delete(gen.values, *i.Result)
	}
	return nil
}

// call expands fn in place. Parameters and the return slot are static, so a
// function may not be re-entered while it runs.
func (gen *generator) call(fn *Function, args []Ref, result *Ref) error {
	if gen.active[fn.Entry] {
		return gen.errorf(ErrRecursion, "%s calls itself", fn.Name)
	}
	if len(args) != len(fn.Params) {
		return gen.errorf(ErrArity, "%s expects %d arguments, got %d", fn.Name, len(fn.Params), len(args))
	}
	gen.active[fn.Entry] = true
	gen.ran[fn.Entry] = true
	defer delete(gen.active, fn.Entry)

	for n, p := range fn.Params {
		gen.move(p, args[n])
	}
	gen.store(fn.Result, IntValue(0))
	if err := gen.run(fn.Entry); err != nil {
		return err
	}
	if result != nil && !gen.halted {
		gen.move(*result, fn.Result)
	}
	return nil
}
