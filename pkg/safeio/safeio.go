package safeio

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrTraversal is returned when a declared path tries to leave its base directory.
var ErrTraversal = errors.New("path traversal detected")

// CleanRelative normalizes a path declared in a service declaration so it can be joined
// under the repository root. Leading "/" and "./" are treated as repository-relative, the
// result uses forward slashes, and any ".." segment is rejected.
func CleanRelative(p string) (string, error) {
	s := filepath.ToSlash(strings.TrimSpace(p))
	s = strings.TrimLeft(s, "/")
	c := path.Clean(s)
	for _, seg := range strings.Split(c, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%q: %w", p, ErrTraversal)
		}
	}
	return c, nil
}

// ReadFileContained reads a file only if it is contained within baseDir.
// Returns an error if the file is outside baseDir or cannot be read.
func ReadFileContained(baseDir, filePath string) ([]byte, error) {
	baseDirAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory %s: %w", baseDir, err)
	}
	filePathAbs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve file path %s: %w", filePath, err)
	}

	rel, err := filepath.Rel(baseDirAbs, filePathAbs)
	if err != nil {
		return nil, fmt.Errorf("relative path of %s: %w", filePath, err)
	}
	if strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return nil, fmt.Errorf("%s is outside %s: %w", filePath, baseDir, ErrTraversal)
	}

	// #nosec G304 -- filePathAbs has been verified to be contained within baseDirAbs
	return os.ReadFile(filePathAbs)
}

// IsFile reports whether p exists and is a regular file.
func IsFile(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.Mode().IsRegular()
}
