package project

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/catonblt/novelbuddies/internal/security"
)

// Reader reads text files from a project root.
type Reader struct {
	Root         string
	Extensions   []string
	MaxFileBytes int64
}

// NewReader creates a Reader for root with the default extensions and size limit.
func NewReader(root string) *Reader {
	return &Reader{
		Root:         root,
		Extensions:   DefaultExtensions,
		MaxFileBytes: DefaultMaxFileBytes,
	}
}

// ReadFile returns the content of rel. It fails with security.ErrPathTraversal
// for paths outside the root, ErrFiltered for directories, binary files
// and disallowed extensions, and ErrTooLarge over the size limit.
func (r *Reader) ReadFile(rel string) (string, error) {
	full, err := security.ResolvePath(r.Root, rel)
	if err != nil {
		return "", err
	}
	if !r.Allowed(rel) {
		return "", fmt.Errorf("%w: %s", ErrFiltered, rel)
	}

	info, err := os.Stat(full)
	if err != nil {
		return "", fmt.Errorf("project: stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrFiltered, rel)
	}
	if limit := r.maxBytes(); info.Size() > limit {
		return "", fmt.Errorf("%w: %s is %d bytes (max %d)", ErrTooLarge, rel, info.Size(), limit)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("project: read %s: %w", rel, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not UTF-8 text", ErrFiltered, rel)
	}
	return string(data), nil
}

// Allowed reports whether rel has a loadable extension.
func (r *Reader) Allowed(rel string) bool {
	exts := r.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	return slices.Contains(exts, strings.ToLower(path.Ext(rel)))
}

func (r *Reader) maxBytes() int64 {
	if r.MaxFileBytes <= 0 {
		return DefaultMaxFileBytes
	}
	return r.MaxFileBytes
}

// List expands doublestar patterns under the root and returns the matching
// files as sorted, slash-separated relative paths. Hidden entries (leading
// ".") and templates (leading "_") are skipped.
func (r *Reader) List(patterns ...string) ([]string, error) {
	fsys := os.DirFS(r.Root)
	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		matches, err := doublestar.Glob(fsys, p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("project: glob %q: %w", p, err)
		}
		for _, m := range matches {
			if seen[m] || skipped(m) {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Walk calls fn for every file under the root with one of exts, skipping
// hidden entries and the directories the index never looks at.
func (r *Reader) Walk(exts []string, fn func(rel string, info fs.FileInfo) error) error {
	fsys := os.DirFS(r.Root)
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if skippedDirs[name] || strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !slices.Contains(exts, strings.ToLower(path.Ext(name))) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		return fn(p, info)
	})
}

// skipped reports whether any component of a slash path is hidden, or the
// base name is a template.
func skipped(p string) bool {
	for part := range strings.SplitSeq(p, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return strings.HasPrefix(path.Base(p), "_")
}

// Size returns the byte size of rel.
func (r *Reader) Size(rel string) (int64, error) {
	full, err := security.ResolvePath(r.Root, rel)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return 0, fmt.Errorf("project: stat %s: %w", rel, err)
	}
	return info.Size(), nil
}
