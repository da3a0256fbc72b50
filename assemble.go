package main

import (
	"fmt"
	"os"
	"os/exec"
)

// fasmArgs returns the command line for assembling src into bin.
func fasmArgs(src, bin string) []string {
	return []string{src, bin}
}

// assemble runs the FASM executable over src and marks bin executable.
func assemble(fasm, src, bin string) error {
	path, err := exec.LookPath(fasm)
	if err != nil {
		return fmt.Errorf("assembler %q not found: %w", fasm, err)
	}
	if out, err := exec.Command(path, fasmArgs(src, bin)...).CombinedOutput(); err != nil {
		return fmt.Errorf("assemble %s: %v\n%s", src, err, out)
	}
	return os.Chmod(bin, 0755)
}
