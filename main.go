package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thiremani/sexpc/cache"
	"github.com/thiremani/sexpc/compiler"
	"github.com/thiremani/sexpc/config"
)

var SX_SUFFIX = ".sx"
var ASM_SUFFIX = ".asm"

// cache entries younger than this are never pruned
var PRUNE_AGE = 7 * 24 * time.Hour

// cachedAssembly returns the cache entry for source, compiling and storing it
// when it is missing.
func cachedAssembly(source string, s config.Settings, cfg config.Configuration) (*cache.Entry, error) {
	dir := s.CacheDir + string(filepath.Separator)
	name := cache.NewKey(source, cfg).Name()

	if e, err := cache.Open(dir, name); err == nil {
		fmt.Printf("Using cached assembly: %s\n", e.Path())
		return e, nil
	}

	prog, err := compiler.Compile(source, cfg)
	if err != nil {
		return nil, err
	}

	e, err := cache.New(dir, name, prog)
	switch {
	case err == nil:
		return e, nil
	case errors.Is(err, cache.ErrAlreadyExists):
		// another process won the race
		e, err := cache.Open(dir, name)
		if errors.Is(err, cache.ErrMutated) {
			// the winner is still writing; leave its entry alone
			fmt.Printf("Cache entry %s is still being written, using fresh output\n", dir+name)
			return cache.Render(prog)
		}
		return e, err
	}
	return nil, err
}

// compileFile compiles one source file into <outDir>/<name>.asm and, when
// enabled, assembles it into <outDir>/<name>.
func compileFile(srcFile, outDir string, s config.Settings, cfg config.Configuration) error {
	source, err := os.ReadFile(srcFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", srcFile, err)
	}

	e, err := cachedAssembly(string(source), s, cfg)
	if err != nil {
		return fmt.Errorf("%s:%s", srcFile, describe(string(source), err))
	}
	defer e.Close()

	name := strings.TrimSuffix(filepath.Base(srcFile), SX_SUFFIX)
	asmFile, err := cache.Save(outDir, name+ASM_SUFFIX, e, cache.SaveOptions{Overwrite: true})
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", asmFile)

	if !s.Assemble {
		return nil
	}
	bin := filepath.Join(outDir, name)
	if err := assemble(s.Fasm, asmFile, bin); err != nil {
		return err
	}
	fmt.Printf("✅ Successfully built binary: %s\n", bin)
	return nil
}

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-version" || os.Args[1] == "--version") {
		printVersion()
		return
	}

	var cwd string
	var err error
	if len(os.Args) > 1 {
		cwd = os.Args[1]
	} else {
		cwd, err = os.Getwd()
		if err != nil {
			fmt.Printf("Error getting current working directory: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Println("Current working directory is", cwd)

	settings := config.LoadSettings()
	fmt.Printf("Using %s: %s\n", config.CacheEnv, settings.CacheDir)
	if err := os.MkdirAll(settings.CacheDir, 0755); err != nil {
		fmt.Printf("Error creating cache directory: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Default()

	dirEntries, err := os.ReadDir(cwd)
	if err != nil {
		fmt.Printf("Error reading current directory: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, entry := range dirEntries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), SX_SUFFIX) {
			continue
		}
		if err := compileFile(filepath.Join(cwd, entry.Name()), cwd, settings, cfg); err != nil {
			fmt.Printf("⚠️ %v\n", err)
			failed++
		}
	}

	removed, err := cache.Prune(settings.CacheDir, settings.CacheKeep, PRUNE_AGE)
	if err != nil {
		fmt.Printf("warning: failed to prune cache: %v\n", err)
	}
	if len(removed) > 0 {
		fmt.Printf("Pruned %d old cache entries\n", len(removed))
	}

	if failed > 0 {
		os.Exit(1)
	}
}
