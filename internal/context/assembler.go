package ctxengine

import (
	"cmp"
	"context"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/catonblt/novelbuddies/internal/provider"
)

var tracer = otel.Tracer("github.com/catonblt/novelbuddies/internal/context")

// AssemblerServiceName is the AppContext service holding the shared *Assembler.
const AssemblerServiceName = "context.assembler"

// AssembleRequest contains the inputs for context assembly.
type AssembleRequest struct {
	// History is the conversation so far, oldest first. Only the most
	// recent ContextConfig.HistoryMessages are costed and returned.
	History []provider.LLMMessage

	// Active is the file the author is editing, if any.
	Active *Candidate

	// Context holds the critical planning and story-bible files.
	Context []Candidate

	// Reference holds the chapters. A chapter with the active file's path
	// is ignored.
	Reference []Candidate
}

// FileReport describes one admitted file.
type FileReport struct {
	Path      string   `json:"path"`
	Category  Category `json:"category"`
	Tokens    int      `json:"tokens"`
	Truncated bool     `json:"truncated"`
}

// Report summarises an assembly for logging and API responses.
type Report struct {
	HistoryTokens    int          `json:"history_tokens"`
	FileTokens       int          `json:"file_tokens"`
	FileBudget       int          `json:"file_budget"`
	TotalTokens      int          `json:"total_tokens"`
	BudgetRemaining  int          `json:"budget_remaining"`
	HistoryExhausted bool         `json:"history_exhausted"`
	FilesIncluded    int          `json:"files_included"`
	Files            []FileReport `json:"files"`
}

// Assembly is the output of Assembler.Assemble.
type Assembly struct {
	// Context is the formatted project-files block, "" when nothing fit.
	Context string

	// History is the windowed history that was costed.
	History []provider.LLMMessage

	// Included lists admitted files in admission order, with truncated
	// content where applicable.
	Included []Candidate

	Budget TokenBudget
	Report Report
}

// Assembler admits candidate files into a token budget.
type Assembler struct {
	estimator TokenEstimator
	config    ContextConfig
}

// NewAssembler creates an Assembler. Zero config fields take their defaults.
func NewAssembler(estimator TokenEstimator, cfg ContextConfig) *Assembler {
	return &Assembler{estimator: estimator, config: cfg.WithDefaults()}
}

// Estimator returns the estimator the assembler measures with.
func (a *Assembler) Estimator() TokenEstimator { return a.estimator }

// Config returns the defaulted configuration.
func (a *Assembler) Config() ContextConfig { return a.config }

// Assemble runs a single admission pass over the request's candidates:
//
//  1. If history alone fills the usable window, no files are admitted.
//  2. Tier 1: the active file, cut to a third of the file budget however
//     small that is.
//  3. Tier 2: planning and story-bible files, smallest first.
//  4. Tier 3: chapters, in the order given.
//
// Within tiers 2 and 3 whole files are taken while they fit. The first file
// that does not fit is admitted truncated if more than MinTruncateTokens
// remain, and the tier ends there.
func (a *Assembler) Assemble(ctx context.Context, req AssembleRequest) Assembly {
	_, span := tracer.Start(ctx, "ctxengine.Assemble")
	defer span.End()

	history := RecentHistory(req.History, a.config.HistoryMessages)
	budget := TokenBudget{
		Capacity:                a.config.Capacity,
		ReservedForResponse:     a.config.ReservedForResponse,
		ReservedForSystemPrompt: a.config.ReservedForSystemPrompt,
		History:                 EstimateMessages(a.estimator, history),
	}

	var included []Candidate
	admit := func(c Candidate) {
		included = append(included, c)
		budget.Files += c.Tokens
	}

	exhausted := budget.History >= budget.Available()
	if !exhausted {
		if req.Active != nil {
			if c, ok := a.admitActive(*req.Active, budget); ok {
				admit(c)
			}
		}

		tier2 := slices.Clone(req.Context)
		slices.SortStableFunc(tier2, func(x, y Candidate) int {
			return cmp.Compare(x.SizeBytes, y.SizeBytes)
		})
		a.admitTier(tier2, &budget, admit)

		var tier3 []Candidate
		for _, c := range req.Reference {
			if req.Active != nil && c.Path == req.Active.Path {
				continue
			}
			tier3 = append(tier3, c)
		}
		a.admitTier(tier3, &budget, admit)
	}

	report := Report{
		HistoryTokens:    budget.History,
		FileTokens:       budget.Files,
		FileBudget:       budget.FileBudget(),
		TotalTokens:      budget.History + budget.Files + budget.ReservedForSystemPrompt,
		BudgetRemaining:  budget.Remaining(),
		HistoryExhausted: exhausted,
		FilesIncluded:    len(included),
		Files:            make([]FileReport, 0, len(included)),
	}
	for _, c := range included {
		report.Files = append(report.Files, FileReport{
			Path: c.Path, Category: c.Category, Tokens: c.Tokens, Truncated: c.Truncated,
		})
	}

	span.SetAttributes(
		attribute.Int("context.history_tokens", report.HistoryTokens),
		attribute.Int("context.file_tokens", report.FileTokens),
		attribute.Int("context.files", report.FilesIncluded),
		attribute.Bool("context.history_exhausted", exhausted),
	)
	if exhausted {
		span.AddEvent("history exhausted budget", trace.WithAttributes(
			attribute.Int("context.available", budget.Available())))
	}

	return Assembly{
		Context:  Format(included),
		History:  history,
		Included: included,
		Budget:   budget,
		Report:   report,
	}
}

// admitActive sizes the active file. It is held to a third of the file
// budget and never to more than what remains. Unlike the other tiers it is
// shrunk however small that limit is, and dropped only when nothing fits.
func (a *Assembler) admitActive(c Candidate, budget TokenBudget) (Candidate, bool) {
	c.Category = CategoryActive
	c.Tier = CategoryActive.Tier()
	limit := min(budget.FileBudget()/3, budget.Remaining())
	return c.shrunk(limit, a.estimator)
}

func (a *Assembler) admitTier(tier []Candidate, budget *TokenBudget, admit func(Candidate)) {
	for _, c := range tier {
		c.Tier = c.Category.Tier()
		if budget.Fits(c.Tokens) {
			admit(c)
			continue
		}
		if remaining := budget.Remaining(); remaining > a.config.MinTruncateTokens {
			if t, ok := c.truncated(remaining, a.estimator); ok {
				admit(t)
			}
		}
		return
	}
}
