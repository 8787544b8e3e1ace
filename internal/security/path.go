package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned for a path that is empty, absolute, or
// would resolve outside its root.
var ErrPathTraversal = errors.New("path escapes project root")

// ResolvePath joins rel onto root and returns the absolute result. It
// fails with ErrPathTraversal when rel is empty, absolute, contains a NUL
// byte or a ".." component, or when an existing symlinked parent would
// lead outside root. The lexical checks run before any filesystem access.
func ResolvePath(root, rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathTraversal)
	}
	if strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("%w: NUL byte in %q", ErrPathTraversal, rel)
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`) {
		return "", fmt.Errorf("%w: absolute path %q", ErrPathTraversal, rel)
	}
	if containsTraversal(rel) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, rel)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("security: resolve root: %w", err)
	}
	full := filepath.Join(absRoot, filepath.FromSlash(rel))
	if !within(absRoot, full) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, rel)
	}

	// Walk up to the deepest existing ancestor and make sure symlinks on
	// the way do not lead out of the root.
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		// Root does not exist yet: nothing under it can be a symlink.
		return full, nil
	}
	existing := full
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return full, nil
		}
		existing = parent
	}
	real, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", fmt.Errorf("security: resolve %q: %w", rel, err)
	}
	if !within(realRoot, real) {
		return "", fmt.Errorf("%w: %q resolves through a symlink", ErrPathTraversal, rel)
	}
	return full, nil
}

// containsTraversal reports whether any component of path is "..",
// splitting on both separators.
func containsTraversal(path string) bool {
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return true
		}
	}
	return false
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
