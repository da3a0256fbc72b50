package cache

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gofrs/flock"
)

// LockName is the lock file guarding a cache directory.
const LockName = ".lock"

func dirLock(dir string) *flock.Flock {
	return flock.New(filepath.Join(dir, LockName))
}

// Prune removes old entries from dir. It keeps at least keep of the most
// recent entries and only deletes files older than minAge, so entries still in
// use by a concurrent process survive. Empty entries older than minAge are
// always removed. When another process holds the directory lock Prune does
// nothing. It returns the removed names.
func Prune(dir string, keep int, minAge time.Duration) ([]string, error) {
	lock := dirLock(dir)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, &IOError{Op: "lock", Path: dir, Err: err}
	}
	if !locked {
		return nil, nil
	}
	defer lock.Unlock()

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &IOError{Op: "readdir", Path: dir, Err: err}
	}

	type entryInfo struct {
		name  string
		mtime time.Time
	}
	cutoff := time.Now().Add(-minAge)
	var removed []string
	var errs []error
	remove := func(name string) {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			errs = append(errs, &IOError{Op: "remove", Path: path, Err: err})
			return
		}
		removed = append(removed, name)
	}

	var entries []entryInfo
	for _, e := range dirEntries {
		if e.IsDir() || !IsEntryName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		// an old empty entry was abandoned by its writer
		if info.Size() == 0 && info.ModTime().Before(cutoff) {
			remove(e.Name())
			continue
		}
		entries = append(entries, entryInfo{e.Name(), info.ModTime()})
	}

	if len(entries) > keep {
		// oldest first
		slices.SortFunc(entries, func(a, b entryInfo) int { return a.mtime.Compare(b.mtime) })
		for _, e := range entries[:len(entries)-keep] {
			if e.mtime.Before(cutoff) {
				remove(e.name)
			}
		}
	}
	return removed, errors.Join(errs...)
}
