package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	tests := []struct {
		name    string
		rel     string
		wantErr bool
	}{
		{name: "plain file", rel: "manuscript/chapters/ch01.md"},
		{name: "dot segments inside root", rel: "planning/./themes.md"},
		{name: "parent escape", rel: "../../etc/passwd", wantErr: true},
		{name: "nested escape", rel: "planning/../../outside.md", wantErr: true},
		{name: "backslash escape", rel: `planning\..\..\outside.md`, wantErr: true},
		{name: "absolute", rel: "/etc/passwd", wantErr: true},
		{name: "empty", rel: "", wantErr: true},
		{name: "whitespace", rel: "   ", wantErr: true},
		{name: "nul byte", rel: "notes\x00.md", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ResolvePath(root, tt.rel)
			if tt.wantErr {
				if !errors.Is(err, ErrPathTraversal) {
					t.Errorf("ResolvePath(%q) error = %v, want ErrPathTraversal", tt.rel, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolvePath(%q): %v", tt.rel, err)
			}
			if !within(root, got) {
				t.Errorf("ResolvePath(%q) = %q, outside %q", tt.rel, got, root)
			}
		})
	}
}

func TestResolvePath_TraversalNeverTouchesDisk(t *testing.T) {
	t.Parallel()

	// A root that does not exist proves the lexical checks run first.
	_, err := ResolvePath("/nonexistent/novel", "../../etc/passwd")
	if !errors.Is(err, ErrPathTraversal) {
		t.Errorf("err = %v, want ErrPathTraversal", err)
	}
}

func TestResolvePath_SymlinkEscape(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "research")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := ResolvePath(root, "research/notes.md")
	if !errors.Is(err, ErrPathTraversal) {
		t.Errorf("err = %v, want ErrPathTraversal through symlink", err)
	}
}
