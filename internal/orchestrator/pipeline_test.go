package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/catonblt/novelbuddies/internal/orchestrator"
	"github.com/catonblt/novelbuddies/internal/project"
	"github.com/catonblt/novelbuddies/internal/provider"
	"github.com/catonblt/novelbuddies/internal/provider/providertest"
)

// agentFor identifies the review agent a request was addressed to.
func agentFor(req provider.CompletionRequest) orchestrator.Agent {
	for _, a := range orchestrator.ReviewOrder() {
		if req.System == orchestrator.ReviewPrompt(a) {
			return a
		}
	}
	return ""
}

// reviewReplies answers each agent with replies[agent], or with a minimal
// JSON analysis when the agent has no entry. Agents listed in failing get
// an error instead.
func reviewReplies(replies map[orchestrator.Agent]string, failing ...orchestrator.Agent) func(context.Context, provider.CompletionRequest) (provider.CompletionResponse, error) {
	return func(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
		if err := ctx.Err(); err != nil {
			return provider.CompletionResponse{}, err
		}
		a := agentFor(req)
		for _, f := range failing {
			if f == a {
				return provider.CompletionResponse{}, provider.ErrProviderDown
			}
		}
		text, ok := replies[a]
		if !ok {
			text = fmt.Sprintf(`{"strengths": ["%s liked it"], "concerns": [], "suggestions": []}`, a)
		}
		return provider.CompletionResponse{Content: text, FinishReason: provider.FinishReasonStop}, nil
	}
}

func TestPipeline_Review(t *testing.T) {
	t.Parallel()

	replies := map[orchestrator.Agent]string{
		orchestrator.AgentArchitect: "Here is my analysis:\n```json\n" +
			`{"strengths": ["Clear midpoint"], "concerns": ["Act two sags"],` +
			` "suggestions": [{"change": "Move the reveal to chapter 9", "rationale": "Tension", "priority": "high"}],` +
			` "structural_assessment": {"effectiveness": "medium"}}` + "\n```",
		orchestrator.AgentProseStylist: `{"strengths": ["Vivid verbs"],` +
			` "suggestions": [{"recommendation": "Vary sentence openings", "priority": "medium"}]}`,
		orchestrator.AgentResearch: "I could not find any issues worth reporting.",
		orchestrator.AgentStoryAdvocate: `{"overall_assessment": "A strong draft with a soft middle.",` +
			` "executive_summary": {"one_line_summary": "Strong draft."}}`,
	}
	mock := &providertest.MockProvider{CompleteFunc: reviewReplies(replies, orchestrator.AgentContinuity)}
	p := orchestrator.NewPipeline(mock, orchestrator.Config{}, nil)

	meta := project.Metadata{Title: "The Lyon Affair", Genre: "Literary"}
	review, err := p.Review(context.Background(), "Elena stepped off the train.", orchestrator.ContentChapter, meta)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}

	order := orchestrator.ReviewOrder()
	if len(review.Analyses) != len(order) {
		t.Fatalf("analyses = %d, want %d", len(review.Analyses), len(order))
	}
	for i, a := range review.Analyses {
		if a.Agent != order[i] {
			t.Errorf("analysis %d is %q, want %q", i, a.Agent, order[i])
		}
	}

	if review.Synthesis != "A strong draft with a soft middle." {
		t.Errorf("synthesis = %q", review.Synthesis)
	}
	if len(review.Suggestions) != 2 || review.Suggestions[0].Priority != orchestrator.PriorityHigh {
		t.Fatalf("suggestions = %+v", review.Suggestions)
	}
	if s := review.Suggestions[1]; s.Change != "Vary sentence openings" || s.Source != orchestrator.AgentProseStylist {
		t.Errorf("second suggestion = %+v", s)
	}

	arch, _ := review.Analysis(orchestrator.AgentArchitect)
	if arch.Fields["structural_assessment"] == nil {
		t.Error("agent-specific keys should be kept")
	}
	research, _ := review.Analysis(orchestrator.AgentResearch)
	if research.ParseError == "" || research.RawAnalysis == "" {
		t.Errorf("research = %+v, want raw analysis", research)
	}
	continuity, _ := review.Analysis(orchestrator.AgentContinuity)
	if !continuity.Failed() || !strings.Contains(continuity.Error, "unavailable") {
		t.Errorf("continuity = %+v, want error", continuity)
	}

	issues := review.CriticalIssues
	if len(issues) < 2 || issues[0].Issue != "Move the reveal to chapter 9" || issues[1].Issue != "Act two sags" {
		t.Errorf("critical issues = %+v", issues)
	}
	if review.OriginalContent == "" || review.ContentType != orchestrator.ContentChapter {
		t.Errorf("review = %+v", review)
	}

	for _, req := range mock.Requests {
		a := agentFor(req)
		msg := req.Messages[0].Content
		if !strings.Contains(msg, "Title: The Lyon Affair") || !strings.Contains(msg, "## Content Type\nchapter") {
			t.Errorf("%s message lacks context:\n%s", a, msg)
		}
		hasInsights := strings.Contains(msg, "## Previous Agent Insights")
		wantInsights := a == orchestrator.AgentBetaReader || a == orchestrator.AgentStoryAdvocate
		if hasInsights != wantInsights {
			t.Errorf("%s: insights present = %v, want %v", a, hasInsights, wantInsights)
		}
		if wantInsights && !strings.Contains(msg, "ARCHITECT concerns: Act two sags") {
			t.Errorf("%s message lacks architect concerns:\n%s", a, msg)
		}
	}
}

func TestPipeline_Review_Canceled(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{CompleteFunc: reviewReplies(nil)}
	p := orchestrator.NewPipeline(mock, orchestrator.Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Review(ctx, "text", orchestrator.ContentScene, project.Metadata{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestPipeline_Review_NoProvider(t *testing.T) {
	t.Parallel()

	p := orchestrator.NewPipeline(nil, orchestrator.Config{}, nil)
	if _, err := p.Review(context.Background(), "text", orchestrator.ContentScene, project.Metadata{}); !errors.Is(err, provider.ErrNoProvider) {
		t.Fatalf("err = %v, want ErrNoProvider", err)
	}
}

func TestReviewMessage_NoContext(t *testing.T) {
	t.Parallel()

	msg := orchestrator.ReviewMessage(orchestrator.AgentArchitect, "text", orchestrator.ContentOutline, project.Metadata{}, nil)
	if !strings.Contains(msg, "No project context available") {
		t.Errorf("message = %q", msg)
	}
}

func TestDetectContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		want    orchestrator.ContentType
	}{
		{"Plan the second act", orchestrator.ContentOutline},
		{"Draft chapter 2", orchestrator.ContentChapter},
		{"A scene in the rain", orchestrator.ContentScene},
		{"Profile the antagonist", orchestrator.ContentCharacter},
		{"Their conversation at dinner", orchestrator.ContentDialogue},
		{"Describe the harbour", orchestrator.ContentDescription},
		{"Please revise this paragraph", orchestrator.ContentRevision},
		{"Add a prefix to the title", orchestrator.ContentGeneral},
		{"Thanks!", orchestrator.ContentGeneral},
	}
	for _, tt := range tests {
		if got := orchestrator.DetectContentType(tt.message); got != tt.want {
			t.Errorf("DetectContentType(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestShouldEnhance(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", orchestrator.MinEnhanceLength)
	tests := []struct {
		ct      orchestrator.ContentType
		message string
		want    bool
	}{
		{orchestrator.ContentChapter, long, true},
		{orchestrator.ContentRevision, long, true},
		{orchestrator.ContentChapter, long[1:], false},
		{orchestrator.ContentGeneral, long, false},
		{"research", long, false},
	}
	for _, tt := range tests {
		if got := orchestrator.ShouldEnhance(tt.ct, tt.message); got != tt.want {
			t.Errorf("ShouldEnhance(%q, %d chars) = %v, want %v", tt.ct, len(tt.message), got, tt.want)
		}
	}
}
