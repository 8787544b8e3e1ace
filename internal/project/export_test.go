package project_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/catonblt/novelbuddies/internal/project"
)

func TestFileIndex(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"planning/themes.md":        "themes",
		"characters/elena.md":       strings.Repeat("e", 2048),
		"manuscript/chapters/01.md": strings.Repeat("c", 1500),
		"research/map.png":          "png",
	})

	got := project.FileIndex(project.NewReader(root))
	want := "## PROJECT FILE INDEX\n\n" +
		"\n### planning/\n- themes.md (6 bytes)\n" +
		"\n### characters/\n- elena.md (2.0 KB)\n" +
		"\n### manuscript/chapters/\n- 01.md (1.5 KB)"
	if got != want {
		t.Errorf("FileIndex =\n%s\nwant\n%s", got, want)
	}
}

func TestSlug(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Night Train":      "night-train",
		"  L'Été à Lyon! ": "l-t-lyon",
		"***":              "manuscript",
	}
	for in, want := range tests {
		if got := project.Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExport(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"manuscript/chapters/01-arrival.md": "# Arrival\n\nElena *waited*.",
		"manuscript/chapters/02-lyon.md":    "# Lyon\n\n<script>alert(1)</script>",
	})
	meta := project.NewMetadata("Night Train")
	meta.Author = "J. Doe"

	rel, err := project.Export(project.NewReader(root), meta)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if rel != "exports/night-train.html" {
		t.Errorf("path = %q", rel)
	}

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	html := string(data)
	for _, want := range []string{"<title>Night Train</title>", "J. Doe", "<em>waited</em>", `id="01-arrival"`} {
		if !strings.Contains(html, want) {
			t.Errorf("export missing %q", want)
		}
	}
	if strings.Index(html, "Arrival") > strings.Index(html, "Lyon</h1>") {
		t.Error("chapters out of order")
	}
	if strings.Contains(html, "<script>") {
		t.Error("raw HTML passed through")
	}
}

func TestExport_NoChapters(t *testing.T) {
	t.Parallel()

	_, err := project.Export(project.NewReader(t.TempDir()), project.NewMetadata("Empty"))
	if !errors.Is(err, project.ErrNoChapters) {
		t.Fatalf("err = %v, want ErrNoChapters", err)
	}
}
