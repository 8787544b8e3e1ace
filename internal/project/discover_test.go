package project_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/catonblt/novelbuddies/internal/project"
)

func TestDiscover(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, name := range []string{"zeta", "alpha"} {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := project.SaveMetadata(dir, project.NewMetadata(name)); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(root, "not-a-project"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := project.Discover(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "alpha" || got[1].Name != "zeta" {
		t.Fatalf("Discover = %+v", got)
	}
	if got[0].Metadata.Title != "alpha" || got[0].Metadata.ID == "" {
		t.Errorf("metadata = %+v", got[0].Metadata)
	}
}

func TestDiscover_MissingRoot(t *testing.T) {
	t.Parallel()

	got, err := project.Discover(filepath.Join(t.TempDir(), "nope"))
	if err != nil || len(got) != 0 {
		t.Fatalf("Discover = %v, %v", got, err)
	}
}

func TestOpen_PersistsGeneratedID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sidecar := `{"version": "1.0.0", "type": "novel-project"}`
	if err := os.WriteFile(filepath.Join(dir, project.MetadataFile), []byte(sidecar), 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := project.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	second, err := project.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if first.Metadata.ID == "" || first.Metadata.ID != second.Metadata.ID {
		t.Errorf("ids differ across opens: %q vs %q", first.Metadata.ID, second.Metadata.ID)
	}
}
