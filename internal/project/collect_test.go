package project_test

import (
	"testing"

	ctxengine "github.com/catonblt/novelbuddies/internal/context"
	"github.com/catonblt/novelbuddies/internal/project"
)

func paths(cands []ctxengine.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Path
	}
	return out
}

func TestCollector_Collect(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"planning/story-outline.md": "outline",
		"planning/themes.md":        "themes",
		"characters/elena.md":       "Elena is 34.",
		"story-bible/continuity.md": "continuity",
		"manuscript/chapters/01.md": "Chapter one",
		"manuscript/chapters/02.md": "Chapter two",
		"manuscript/scenes/cafe.md": "scene",
		"research/lyon.md":          "Lyon notes",
	})

	c := project.NewCollector(project.NewReader(root), ctxengine.NewCharEstimator(4), nil)

	t.Run("active excluded from tiers", func(t *testing.T) {
		t.Parallel()
		req := c.Collect("manuscript/chapters/02.md", "")
		if req.Active == nil || req.Active.Path != "manuscript/chapters/02.md" {
			t.Fatalf("active = %+v", req.Active)
		}
		if req.Active.Category != ctxengine.CategoryActive {
			t.Errorf("active category = %q", req.Active.Category)
		}
		got := paths(req.Reference)
		if len(got) != 1 || got[0] != "manuscript/chapters/01.md" {
			t.Errorf("reference = %v, want only chapter 01", got)
		}
		ctxPaths := paths(req.Context)
		want := []string{"planning/story-outline.md", "planning/themes.md", "characters/elena.md", "story-bible/continuity.md"}
		if len(ctxPaths) != len(want) {
			t.Fatalf("context = %v, want %v", ctxPaths, want)
		}
		for i := range want {
			if ctxPaths[i] != want[i] {
				t.Errorf("context[%d] = %s, want %s", i, ctxPaths[i], want[i])
			}
		}
	})

	t.Run("agent extras", func(t *testing.T) {
		t.Parallel()
		req := c.Collect("", "research")
		if req.Active != nil {
			t.Errorf("active = %+v, want nil", req.Active)
		}
		got := paths(req.Reference)
		want := []string{"manuscript/chapters/01.md", "manuscript/chapters/02.md", "research/lyon.md"}
		if len(got) != len(want) {
			t.Fatalf("reference = %v, want %v", got, want)
		}
	})

	t.Run("missing active", func(t *testing.T) {
		t.Parallel()
		req := c.Collect("manuscript/chapters/99.md", "unknown_agent")
		if req.Active != nil {
			t.Errorf("active = %+v, want nil for missing file", req.Active)
		}
		if len(req.Reference) != 2 {
			t.Errorf("reference = %v", paths(req.Reference))
		}
	})
}
