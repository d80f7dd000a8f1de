//go:build !unix

package platform

import (
	"fmt"
	"io/fs"
	"os"
)

// localSymlinks falls back to the os package where x/sys/unix is unavailable.
type localSymlinks struct{}

func (localSymlinks) IsSymlink(path string) (bool, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return false, fmt.Errorf("lstat %s: %w", path, err)
	}
	return fi.Mode()&fs.ModeSymlink != 0, nil
}

func (localSymlinks) ReadSymlink(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", fmt.Errorf("readlink %s: %w", path, err)
	}
	return target, nil
}

func (localSymlinks) CreateSymlink(target, linkPath string) error {
	if err := os.Symlink(target, linkPath); err != nil {
		return fmt.Errorf("symlink %s: %w", linkPath, err)
	}
	return nil
}
