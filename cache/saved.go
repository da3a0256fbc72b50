package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type SaveOptions struct {
	// Overwrite replaces an existing entry instead of failing.
	Overwrite bool
}

// Save stores a under dir/name so that readers only ever see a complete file.
// The data is written to a temporary file and synced, then published under
// the directory lock. Without Overwrite an existing entry is left untouched
// and Save fails with ErrAlreadyExists. Save returns the entry path.
func Save(dir, name string, a Assembly, opts SaveOptions) (string, error) {
	data, err := a.Assemble()
	if err != nil {
		return "", &AssemblyError{Err: err}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := writeTemp(dir, name, data)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp) // no-op once published

	lock := dirLock(dir)
	if err := lock.Lock(); err != nil {
		return "", &IOError{Op: "lock", Path: dir, Err: err}
	}
	defer lock.Unlock()

	dst := filepath.Join(dir, name)
	if opts.Overwrite {
		err = os.Rename(tmp, dst)
	} else {
		err = publish(tmp, dst)
	}
	if errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("%s: %w", dst, ErrAlreadyExists)
	}
	if err != nil {
		return "", &IOError{Op: "publish", Path: dst, Err: err}
	}
	return dst, syncDir(dir)
}

func writeTemp(dir, name string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".tmp*")
	if err != nil {
		return "", &IOError{Op: "create", Path: dir, Err: err}
	}
	tmp := f.Name()
	fail := func(op string, err error) (string, error) {
		f.Close()
		os.Remove(tmp)
		return "", &IOError{Op: op, Path: tmp, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		return fail("write", err)
	}
	if err := f.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", &IOError{Op: "close", Path: tmp, Err: err}
	}
	return tmp, nil
}

// linkPublish publishes tmp as dst unless dst exists. os.Link fails with
// fs.ErrExist instead of replacing.
func linkPublish(tmp, dst string) error {
	if err := os.Link(tmp, dst); err != nil {
		return err
	}
	return os.Remove(tmp)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return &IOError{Op: "open", Path: dir, Err: err}
	}
	defer d.Close()
	// some filesystems refuse to sync directories
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return &IOError{Op: "sync", Path: dir, Err: err}
	}
	return nil
}
