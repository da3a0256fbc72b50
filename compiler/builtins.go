package compiler

// Builtin call targets. The leading # keeps them apart from user labels.
const (
	BuiltinExit    BlockID = "#exit"
	BuiltinPrint   BlockID = "#print"
	BuiltinSyscall BlockID = "#syscall"
)

// SyscallExtension is the name written after # to issue a raw system call.
const SyscallExtension = "syscall"

// SyscallArgs is the number of argument registers a #syscall may load after
// the syscall number.
const SyscallArgs = 3

// arity bounds; max < 0 means unbounded
type arity struct{ min, max int }

// BuiltinFunc describes a builtin reachable by plain name. User functions of
// the same name shadow it.
type BuiltinFunc struct {
	Target BlockID
	arity  arity
}

var Builtins = map[string]*BuiltinFunc{
	"exit":  {Target: BuiltinExit, arity: arity{1, 1}},
	"print": {Target: BuiltinPrint, arity: arity{1, -1}},
}

// Linux x86-64 system call numbers used by the builtins.
const (
	sysWrite     = 1
	sysExit      = 60
	sysExitGroup = 231
	stdout       = 1
)
