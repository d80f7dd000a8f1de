//go:build unix

package platform

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// maxTarget bounds the readlink buffer.
const maxTarget = 1 << 16

// localSymlinks uses lstat(2), readlink(2) and symlink(2) directly.
type localSymlinks struct{}

func (localSymlinks) IsSymlink(path string) (bool, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return false, fmt.Errorf("lstat %s: %w", path, err)
	}
	return st.Mode&unix.S_IFMT == unix.S_IFLNK, nil
}

func (localSymlinks) ReadSymlink(path string) (string, error) {
	buf := make([]byte, 256)
	for {
		n, err := unix.Readlink(path, buf)
		if err != nil {
			return "", fmt.Errorf("readlink %s: %w", path, err)
		}
		// A full buffer may mean the target was cut short.
		if n < len(buf) {
			return string(buf[:n]), nil
		}
		if len(buf) >= maxTarget {
			return "", fmt.Errorf("readlink %s: %w", path, unix.ENAMETOOLONG)
		}
		buf = make([]byte, len(buf)*2)
	}
}

func (localSymlinks) CreateSymlink(target, linkPath string) error {
	if err := unix.Symlink(target, linkPath); err != nil {
		if errors.Is(err, unix.EEXIST) {
			return fmt.Errorf("symlink %s: already exists: %w", linkPath, err)
		}
		return fmt.Errorf("symlink %s: %w", linkPath, err)
	}
	return nil
}
