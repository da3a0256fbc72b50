//go:build linux

package cache

import (
	"errors"

	"golang.org/x/sys/unix"
)

// publish renames tmp to dst atomically, failing if dst exists. Filesystems
// without RENAME_NOREPLACE fall back to a hard link.
func publish(tmp, dst string) error {
	err := unix.Renameat2(unix.AT_FDCWD, tmp, unix.AT_FDCWD, dst, unix.RENAME_NOREPLACE)
	if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.ENOSYS) {
		return linkPublish(tmp, dst)
	}
	return err
}
