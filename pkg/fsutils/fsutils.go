// Package fsutils resolves paths on the real filesystem.
package fsutils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// TruePath returns the absolute form of path with every symlink resolved.
func TruePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve symlinks: %w", err)
	}
	return resolved, nil
}

// FindUp looks for a regular file called name in dir and then in each of its
// ancestors. It returns "" when no directory up to the root has one.
func FindUp(dir, name string) (string, error) {
	dir, err := TruePath(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			return candidate, nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return "", err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
