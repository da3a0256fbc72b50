// Package config holds the compile target configuration and the driver
// settings read from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xyproto/env/v2"
)

var ErrUnsupported = errors.New("unsupported configuration")

type Platform int

const (
	Linux Platform = iota
)

type Kind int

const (
	Executable Kind = iota
	Library
)

type Arch int

const (
	X86_64 Arch = iota
)

type Format int

const (
	ELF64 Format = iota
)

type Assembler int

const (
	FASM Assembler = iota
)

func (p Platform) String() string {
	if p == Linux {
		return "linux"
	}
	return fmt.Sprintf("platform(%d)", int(p))
}

func (k Kind) String() string {
	switch k {
	case Executable:
		return "executable"
	case Library:
		return "library"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (a Arch) String() string {
	if a == X86_64 {
		return "x86-64"
	}
	return fmt.Sprintf("arch(%d)", int(a))
}

func (f Format) String() string {
	if f == ELF64 {
		return "elf64"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

func (a Assembler) String() string {
	if a == FASM {
		return "fasm"
	}
	return fmt.Sprintf("assembler(%d)", int(a))
}

// Configuration selects the output. It is a plain value and never changes
// once built.
type Configuration struct {
	Platform  Platform
	Kind      Kind
	Arch      Arch
	Format    Format
	Assembler Assembler
}

func Default() Configuration {
	return Configuration{
		Platform:  Linux,
		Kind:      Executable,
		Arch:      X86_64,
		Format:    ELF64,
		Assembler: FASM,
	}
}

// String is stable across runs and feeds the cache key.
func (c Configuration) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", c.Platform, c.Kind, c.Arch, c.Format, c.Assembler)
}

// Validate reports configurations the code generator cannot produce.
func (c Configuration) Validate() error {
	if c.Kind != Executable {
		return fmt.Errorf("%w: %s output", ErrUnsupported, c.Kind)
	}
	if c != Default() {
		return fmt.Errorf("%w: %s", ErrUnsupported, c)
	}
	return nil
}

const (
	CacheEnv    = "SEXPC_CACHE"
	FasmEnv     = "SEXPC_FASM"
	KeepEnv     = "SEXPC_CACHE_KEEP"
	AssembleEnv = "SEXPC_ASSEMBLE"

	DefaultFasm = "fasm"
	DefaultKeep = 64
)

// Settings configure the driver.
type Settings struct {
	CacheDir  string
	Fasm      string // assembler executable
	CacheKeep int    // entries kept by a prune
	Assemble  bool   // run the assembler on the output
}

// LoadSettings reads the SEXPC_* environment variables.
func LoadSettings() Settings {
	return Settings{
		CacheDir:  env.Str(CacheEnv, DefaultCacheDir(env.Str("XDG_CACHE_HOME"))),
		Fasm:      env.Str(FasmEnv, DefaultFasm),
		CacheKeep: env.Int(KeepEnv, DefaultKeep),
		Assemble:  env.Bool(AssembleEnv),
	}
}

// DefaultCacheDir is $XDG_CACHE_HOME/sexpc when xdg is set and ~/.cache/sexpc
// otherwise.
func DefaultCacheDir(xdg string) string {
	if xdg != "" {
		return filepath.Join(xdg, "sexpc")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "sexpc")
	}
	return filepath.Join(homeDir, ".cache", "sexpc")
}
