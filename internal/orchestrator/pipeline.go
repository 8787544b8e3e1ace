package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/catonblt/novelbuddies/internal/project"
	"github.com/catonblt/novelbuddies/internal/provider"
)

// Review content types.
const (
	ContentOutline     ContentType = "outline"
	ContentChapter     ContentType = "chapter"
	ContentScene       ContentType = "scene"
	ContentCharacter   ContentType = "character"
	ContentDialogue    ContentType = "dialogue"
	ContentDescription ContentType = "description"
	ContentRevision    ContentType = "revision"
)

var contentKeywords = []struct {
	ct    ContentType
	words []string
}{
	{ContentOutline, []string{"outline", "structure", "plot", "arc", "plan"}},
	{ContentChapter, []string{"chapter"}},
	{ContentScene, []string{"scene"}},
	{ContentCharacter, []string{"character", "protagonist", "antagonist", "profile"}},
	{ContentDialogue, []string{"dialogue", "conversation", "talk", "speak"}},
	{ContentDescription, []string{"describe", "description", "setting", "atmosphere"}},
	{ContentRevision, []string{"revise", "edit", "improve", "rewrite", "fix"}},
}

// DetectContentType classifies a message for the review pipeline. It is
// coarser than Classify: the result is one of the review content types or
// ContentGeneral.
func DetectContentType(message string) ContentType {
	lower := strings.ToLower(message)
	for _, k := range contentKeywords {
		for _, w := range k.words {
			if hasWordPrefix(lower, w) {
				return k.ct
			}
		}
	}
	return ContentGeneral
}

// MinEnhanceLength is the shortest message worth a full review.
const MinEnhanceLength = 50

// ShouldEnhance reports whether content of type ct produced for message
// is substantial enough to send through the review pipeline.
func ShouldEnhance(ct ContentType, message string) bool {
	switch ct {
	case ContentOutline, ContentChapter, ContentScene, ContentCharacter,
		ContentDialogue, ContentDescription, ContentRevision:
		return utf8.RuneCountInString(message) >= MinEnhanceLength
	default:
		return false
	}
}

// Review batches. Agents within a batch run concurrently; the final agents
// run one after another because they read everything before them.
var (
	reviewBatch1 = []Agent{AgentArchitect, AgentCharacterPsychologist, AgentProseStylist, AgentAtmosphere}
	reviewBatch2 = []Agent{AgentResearch, AgentContinuity, AgentRedundancy}
	reviewFinal  = []Agent{AgentBetaReader, AgentStoryAdvocate}
)

// ReviewOrder lists every review agent in processing order.
func ReviewOrder() []Agent {
	out := make([]Agent, 0, len(reviewBatch1)+len(reviewBatch2)+len(reviewFinal))
	out = append(out, reviewBatch1...)
	out = append(out, reviewBatch2...)
	return append(out, reviewFinal...)
}

// Review is the outcome of Pipeline.Review.
type Review struct {
	OriginalContent   string        `json:"original_content"`
	ContentType       ContentType   `json:"content_type"`
	Analyses          []Analysis    `json:"agent_analyses"`
	Synthesis         string        `json:"synthesis"`
	Suggestions       []Suggestion  `json:"suggested_improvements"`
	CriticalIssues    []Issue       `json:"critical_issues"`
	ProcessingSeconds float64       `json:"processing_time_seconds"`
	Duration          time.Duration `json:"-"`
}

// Analysis returns the named agent's analysis, if it ran.
func (r Review) Analysis(a Agent) (Analysis, bool) {
	for _, an := range r.Analyses {
		if an.Agent == a {
			return an, true
		}
	}
	return Analysis{}, false
}

// Pipeline runs content past all nine agents and merges their findings.
type Pipeline struct {
	provider provider.Provider
	config   Config
	logger   *slog.Logger
}

// NewPipeline creates a Pipeline. A nil logger uses slog.Default().
func NewPipeline(p provider.Provider, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		provider: p,
		config:   cfg.withDefaults(),
		logger:   logger.With("component", "review"),
	}
}

// Review analyses content of type ct. A failed agent does not fail the
// review; its Analysis carries the error. Review itself fails only when
// ctx ends or no provider is configured.
func (p *Pipeline) Review(ctx context.Context, content string, ct ContentType, meta project.Metadata) (Review, error) {
	if p.provider == nil {
		return Review{}, provider.ErrNoProvider
	}
	ctx, span := tracer.Start(ctx, "orchestrator.Review")
	defer span.End()
	span.SetAttributes(attribute.String("review.content_type", string(ct)))

	start := time.Now()
	var analyses []Analysis
	for _, batch := range [][]Agent{reviewBatch1, reviewBatch2} {
		results, err := p.runBatch(ctx, batch, content, ct, meta, analyses)
		if err != nil {
			return Review{}, err
		}
		analyses = append(analyses, results...)
	}
	for _, a := range reviewFinal {
		if err := ctx.Err(); err != nil {
			return Review{}, fmt.Errorf("orchestrator: review: %w", err)
		}
		analyses = append(analyses, p.analyze(ctx, a, content, ct, meta, analyses))
	}

	d := time.Since(start)
	review := Review{
		OriginalContent:   content,
		ContentType:       ct,
		Analyses:          analyses,
		Synthesis:         Synthesis(analyses),
		Suggestions:       Suggestions(analyses),
		CriticalIssues:    CriticalIssues(analyses),
		ProcessingSeconds: math.Round(d.Seconds()*100) / 100,
		Duration:          d,
	}
	p.logger.Info("review completed",
		"content_type", ct,
		"suggestions", len(review.Suggestions),
		"critical_issues", len(review.CriticalIssues),
		"duration", d,
	)
	return review, nil
}

func (p *Pipeline) runBatch(
	ctx context.Context,
	batch []Agent,
	content string,
	ct ContentType,
	meta project.Metadata,
	previous []Analysis,
) ([]Analysis, error) {
	results := make([]Analysis, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range batch {
		g.Go(func() error {
			results[i] = p.analyze(gctx, a, content, ct, meta, previous)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("orchestrator: review: %w", err)
	}
	return results, nil
}

func (p *Pipeline) analyze(
	ctx context.Context,
	agent Agent,
	content string,
	ct ContentType,
	meta project.Metadata,
	previous []Analysis,
) Analysis {
	resp, err := p.provider.Complete(ctx, provider.CompletionRequest{
		System: ReviewPrompt(agent),
		Messages: []provider.LLMMessage{{
			Role:    provider.MessageRoleUser,
			Content: ReviewMessage(agent, content, ct, meta, previous),
		}},
		MaxTokens:   p.config.ReviewMaxTokens,
		Temperature: p.config.Temperature,
	})
	if err != nil {
		p.logger.Warn("review agent failed", "agent", agent, "error", err)
		return Analysis{Agent: agent, Error: err.Error()}
	}
	a := ParseAnalysis(agent, resp.Content)
	if a.ParseError != "" {
		p.logger.Warn("review agent returned non-JSON", "agent", agent)
	}
	return a
}

// ReviewMessage builds the user message sent to a review agent. The beta
// reader and the Story Advocate also see the strengths and concerns found
// by the agents before them.
func ReviewMessage(agent Agent, content string, ct ContentType, meta project.Metadata, previous []Analysis) string {
	var b strings.Builder
	b.WriteString("## Project Context\n")
	if info := projectLines(meta); info != "" {
		b.WriteString(info)
	} else {
		b.WriteString("No project context available\n")
	}

	fmt.Fprintf(&b, "\n## Content Type\n%s\n\n## Content to Analyze\n\n%s\n", ct, content)

	if agent == AgentBetaReader || agent == AgentStoryAdvocate {
		var insights []string
		for _, a := range previous {
			if a.Failed() {
				continue
			}
			name := strings.ToUpper(string(a.Agent))
			if len(a.Strengths) > 0 {
				insights = append(insights, fmt.Sprintf("%s strengths: %s", name, strings.Join(a.Strengths, "; ")))
			}
			if len(a.Concerns) > 0 {
				insights = append(insights, fmt.Sprintf("%s concerns: %s", name, strings.Join(a.Concerns, "; ")))
			}
		}
		if len(insights) > 0 {
			b.WriteString("\n## Previous Agent Insights\n")
			b.WriteString(strings.Join(insights, "\n"))
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\nAnalyse this content according to your role and reply in the JSON format "+
		"from your instructions. Give specific, actionable feedback that will improve this %s.\n", ct)
	return b.String()
}

func projectLines(meta project.Metadata) string {
	var b strings.Builder
	for _, f := range []struct{ label, value string }{
		{"Title", meta.Title},
		{"Author", meta.Author},
		{"Genre", meta.Genre},
		{"Premise", meta.Premise},
		{"Themes", meta.Themes},
		{"Setting", meta.Setting},
	} {
		if f.value != "" {
			fmt.Fprintf(&b, "%s: %s\n", f.label, f.value)
		}
	}
	return b.String()
}
