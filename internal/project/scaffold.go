package project

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"
)

//go:embed all:templates
var templateFS embed.FS

// Scaffold creates the project layout under root: the standard directories,
// the starter documents filled in from meta, and the sidecar. Existing
// files are left alone, so scaffolding over a plain folder of notes is
// safe. It fails with ErrExists if root already has a sidecar. The
// returned paths are the files it created.
func Scaffold(root string, meta Metadata) ([]string, error) {
	if _, err := os.Stat(filepath.Join(root, MetadataFile)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, root)
	}
	for _, dir := range Directories {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0o755); err != nil {
			return nil, fmt.Errorf("project: create %s: %w", dir, err)
		}
	}

	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("project: templates: %w", err)
	}

	var created []string
	err = fs.WalkDir(sub, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		body, err := renderTemplate(sub, p, meta)
		if err != nil {
			return err
		}
		ok, err := writeNew(filepath.Join(root, filepath.FromSlash(p)), body)
		if err != nil {
			return fmt.Errorf("project: write %s: %w", p, err)
		}
		if ok {
			created = append(created, p)
		}
		return nil
	})
	if err != nil {
		return created, err
	}

	if err := SaveMetadata(root, meta); err != nil {
		return created, err
	}
	return append(created, MetadataFile), nil
}

func renderTemplate(fsys fs.FS, name string, meta Metadata) ([]byte, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("project: read template %s: %w", name, err)
	}
	tmpl, err := template.New(name).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("project: parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, meta); err != nil {
		return nil, fmt.Errorf("project: render template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// writeNew creates path with data unless it already exists. It reports
// whether the file was written.
func writeNew(path string, data []byte) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return false, err
	}
	return true, f.Close()
}
