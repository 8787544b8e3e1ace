package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Entry is a project found under a projects root.
type Entry struct {
	// Name is the directory name, which is also the URL key.
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Metadata Metadata `json:"metadata"`
}

// Open loads the project at root. A sidecar lacking an ID is given one and
// saved, so the project keeps its identity across restarts.
func Open(root string) (Entry, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Entry{}, fmt.Errorf("project: resolve %s: %w", root, err)
	}
	m, err := LoadMetadata(abs)
	if err != nil {
		return Entry{}, err
	}
	if !hasStoredID(abs) {
		if err := SaveMetadata(abs, m); err != nil {
			return Entry{}, err
		}
	}
	return Entry{Name: filepath.Base(abs), Path: abs, Metadata: m}, nil
}

// hasStoredID reports whether the sidecar on disk already carries an id.
func hasStoredID(root string) bool {
	data, err := os.ReadFile(filepath.Join(root, MetadataFile))
	if err != nil {
		return false
	}
	var stored struct {
		ID string `json:"id"`
	}
	return json.Unmarshal(data, &stored) == nil && stored.ID != ""
}

// Discover lists the projects directly under root, sorted by name.
// Directories without a sidecar are skipped; a missing root yields none.
func Discover(root string) ([]Entry, error) {
	dirs, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("project: list %s: %w", root, err)
	}

	var out []Entry
	for _, d := range dirs {
		if !d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		e, err := Open(filepath.Join(root, d.Name()))
		if errors.Is(err, ErrNoMetadata) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}
