package project_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/catonblt/novelbuddies/internal/project"
	"github.com/catonblt/novelbuddies/internal/security"
)

// writeFiles creates each path under root with its content.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestReader_ReadFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"planning/story-outline.md": "# Outline",
		"notes.bin":                 "data",
		"bad.md":                    "\xff\xfe\x00",
		"large.md":                  strings.Repeat("x", 64),
	})
	if err := os.MkdirAll(filepath.Join(root, "folder.md"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := project.NewReader(root)
	r.MaxFileBytes = 32

	tests := []struct {
		name    string
		rel     string
		want    string
		wantErr error
	}{
		{name: "text file", rel: "planning/story-outline.md", want: "# Outline"},
		{name: "traversal", rel: "../outside.md", wantErr: security.ErrPathTraversal},
		{name: "disallowed extension", rel: "notes.bin", wantErr: project.ErrFiltered},
		{name: "not utf8", rel: "bad.md", wantErr: project.ErrFiltered},
		{name: "directory", rel: "folder.md", wantErr: project.ErrFiltered},
		{name: "too large", rel: "large.md", wantErr: project.ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := r.ReadFile(tt.rel)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if got != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReader_List(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"characters/elena.md":               "Elena",
		"characters/_character-template.md": "template",
		"characters/.draft.md":              "hidden",
		"story-bible/world/cities.md":       "Paris",
		"story-bible/timeline.md":           "1920",
		".git/story-bible/x.md":             "nope",
	})

	r := project.NewReader(root)
	got, err := r.List(project.StoryBiblePatterns...)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"characters/elena.md", "story-bible/timeline.md", "story-bible/world/cities.md"}
	if !slices.Equal(got, want) {
		t.Errorf("List = %v, want %v", got, want)
	}
}

func TestReader_Walk(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"manuscript/chapters/01.md":  "one",
		"research/paris.txt":         "paris",
		"research/map.png":           "png",
		"node_modules/pkg/readme.md": "skip",
		".novel_buddies/cache.md":    "skip",
		"exports/novel.md":           "skip",
		".hidden/notes.md":           "skip",
		".novel-project.json":        "{}",
	})

	var got []string
	err := project.NewReader(root).Walk(project.IndexExtensions, func(rel string, _ os.FileInfo) error {
		got = append(got, rel)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	slices.Sort(got)
	want := []string{"manuscript/chapters/01.md", "research/paris.txt"}
	if !slices.Equal(got, want) {
		t.Errorf("Walk = %v, want %v", got, want)
	}
}
