package orchestrator_test

import (
	"strings"
	"testing"

	"github.com/catonblt/novelbuddies/internal/orchestrator"
	"github.com/catonblt/novelbuddies/internal/project"
)

func TestProjectContext(t *testing.T) {
	t.Parallel()

	t.Run("placeholders", func(t *testing.T) {
		t.Parallel()
		got := orchestrator.ProjectContext(project.Metadata{}, "")
		for _, want := range []string{
			"- Title: Untitled",
			"- Author: Unknown",
			"- Genre: Not specified",
			"- Premise: Not yet defined",
			"- Themes: Not yet defined",
			"- Setting: Not yet defined",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("missing %q in:\n%s", want, got)
			}
		}
		if strings.Contains(got, "Project Path") {
			t.Error("empty project path should be omitted")
		}
	})

	t.Run("filled", func(t *testing.T) {
		t.Parallel()
		meta := project.Metadata{
			Title:           "The Lyon Affair",
			Author:          "M. Durand",
			Genre:           "Literary",
			Premise:         "A journalist returns home.",
			TargetWordCount: 80000,
			KeyCharacters:   "Elena, Marc",
		}
		got := orchestrator.ProjectContext(meta, "/novels/lyon")
		for _, want := range []string{
			"- Title: The Lyon Affair",
			"- Project Path: /novels/lyon",
			"- Target Word Count: 80000",
			"- Premise: A journalist returns home.",
			"- Key Characters: Elena, Marc",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("missing %q in:\n%s", want, got)
			}
		}
	})
}

func TestRouting(t *testing.T) {
	t.Parallel()

	if got := orchestrator.Routing(nil, nil); got != "" {
		t.Errorf("Routing(nil, nil) = %q, want empty", got)
	}

	ct, agents := orchestrator.Classify("Write chapter 3")
	got := orchestrator.Routing(agents, orchestrator.ReviewersFor(ct))
	for _, want := range []string{
		"For this request, consider utilizing: Prose Stylist, Architect",
		"Content will be reviewed by: Continuity, Redundancy, Beta Reader",
		"manuscript/chapters/",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestReviewPrompt(t *testing.T) {
	t.Parallel()

	for _, a := range orchestrator.ReviewOrder() {
		p := orchestrator.ReviewPrompt(a)
		if !strings.Contains(p, `"suggestions"`) {
			t.Errorf("%s prompt lacks the output contract", a)
		}
	}
	if !strings.Contains(orchestrator.ReviewPrompt(orchestrator.AgentStoryAdvocate), "overall_assessment") {
		t.Error("story advocate prompt lacks overall_assessment")
	}
	if got := orchestrator.ReviewPrompt("editor"); got != "" {
		t.Errorf("unknown agent prompt = %q, want empty", got)
	}
}

func TestFileOperationInstructions(t *testing.T) {
	t.Parallel()

	got := orchestrator.FileOperationInstructions()
	for _, kind := range []string{"create", "update", "append", "insert", "patch", "delete"} {
		if !strings.Contains(got, "- "+kind+":") {
			t.Errorf("instructions do not describe %q", kind)
		}
	}
}
