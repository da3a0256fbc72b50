// Package cache stores rendered assembly as files named by a content key.
package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

var (
	ErrAlreadyExists = errors.New("cache entry already exists")
	ErrMutated       = errors.New("cache entry is empty")
	ErrInvalid       = errors.New("invalid cache entry")
)

// Assembly is anything that renders to assembler source.
type Assembly interface {
	Assemble() ([]byte, error)
}

// IOError is a filesystem failure on Path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// AssemblyError is a render failure.
type AssemblyError struct {
	Err error
}

func (e *AssemblyError) Error() string {
	return "cache render: " + e.Err.Error()
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// Entry is one cached file and its contents.
type Entry struct {
	path string
	data []byte
}

// New renders a and writes it to path+name. path is used as given, so a
// directory must end in a separator. The file is created exclusively: when it
// already exists New fails with ErrAlreadyExists, even if the file is still
// empty because another writer has not finished. A failed write removes the
// partial file.
func New(path, name string, a Assembly) (*Entry, error) {
	data, err := a.Assemble()
	if err != nil {
		return nil, &AssemblyError{Err: err}
	}

	full := path + name
	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%s: %w", full, ErrAlreadyExists)
		}
		return nil, &IOError{Op: "create", Path: full, Err: err}
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(full)
		return nil, &IOError{Op: "write", Path: full, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return nil, &IOError{Op: "close", Path: full, Err: err}
	}
	return &Entry{path: full, data: data}, nil
}

// Open reads an existing entry. An empty file is ErrMutated: its writer is
// still running or died before writing.
func Open(path, name string) (*Entry, error) {
	full := path + name
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, &IOError{Op: "read", Path: full, Err: err}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", full, ErrMutated)
	}
	return &Entry{path: full, data: data}, nil
}

// Render returns an entry for a that is not backed by a cache file.
func Render(a Assembly) (*Entry, error) {
	data, err := a.Assemble()
	if err != nil {
		return nil, &AssemblyError{Err: err}
	}
	return &Entry{data: data}, nil
}

// Path is empty for entries made by Render.
func (e *Entry) Path() string {
	return e.path
}

// Reader returns a fresh reader over the entry contents.
func (e *Entry) Reader() io.Reader {
	return bytes.NewReader(e.data)
}

// Assemble returns the stored source, so an entry can be saved elsewhere.
func (e *Entry) Assemble() ([]byte, error) {
	if e.data == nil {
		return nil, fmt.Errorf("%s: %w", e.path, ErrInvalid)
	}
	return e.data, nil
}

func (e *Entry) Len() int {
	return len(e.data)
}

// Close releases the entry. The file stays on disk.
func (e *Entry) Close() error {
	e.data = nil
	return nil
}
