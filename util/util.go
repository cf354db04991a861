package util

import (
	"os"
	"path/filepath"
	"strings"
)

// FileExists checks if a path exists and is a regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// DirExists checks if a path exists and is a directory
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// EnsureDir creates a directory (and parents) if it does not exist
func EnsureDir(path string) error {
	if DirExists(path) {
		return nil
	}
	return os.MkdirAll(path, 0755)
}

// RelativePath computes the path of abs relative to root with forward
// slashes, regardless of the host separator. Returns abs unchanged if it
// is not under root.
func RelativePath(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// IsHiddenName reports whether a file or directory name begins with a dot.
func IsHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}
