package fileops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// writeFile replaces full atomically, creating parent directories.
func writeFile(full, content string) error {
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(full); err == nil {
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(full)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), full)
}

// readOptional returns the file content, or "" when it does not exist.
func readOptional(full string) (string, error) {
	b, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	return string(b), err
}

// relative returns full relative to root in slash form, falling back to
// the requested path.
func relative(root, full, requested string) string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return filepath.ToSlash(requested)
	}
	rel, err := filepath.Rel(absRoot, full)
	if err != nil {
		return filepath.ToSlash(requested)
	}
	return filepath.ToSlash(rel)
}
