package project

import (
	"log/slog"
	"slices"

	ctxengine "github.com/catonblt/novelbuddies/internal/context"
)

// agentExtras lists additional patterns that particular agents benefit
// from, admitted as reference material after the chapters.
var agentExtras = map[string][]string{
	"research":      {"research/**/*.md", "research/**/*.txt"},
	"prose_stylist": {"manuscript/scenes/*.md"},
	"redundancy":    {"manuscript/scenes/*.md"},
	"beta_reader":   {"manuscript/scenes/*.md"},
	"atmosphere":    {"research/**/*.md"},
}

// Collector partitions a project into context candidates.
type Collector struct {
	reader    *Reader
	estimator ctxengine.TokenEstimator
	logger    *slog.Logger
}

// NewCollector creates a Collector. A nil logger uses slog.Default().
func NewCollector(reader *Reader, estimator ctxengine.TokenEstimator, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{reader: reader, estimator: estimator, logger: logger}
}

// Collect reads the project's candidates fresh from disk. activePath may
// be empty. agent, when it names a known agent, adds that agent's extra
// reference material. The active file never appears in another tier.
// Unreadable files are logged and skipped.
func (c *Collector) Collect(activePath, agent string) ctxengine.AssembleRequest {
	var req ctxengine.AssembleRequest
	seen := make(map[string]bool)

	if activePath != "" {
		if cand, ok := c.read(activePath, ctxengine.CategoryActive); ok {
			req.Active = &cand
			seen[activePath] = true
		}
	}

	for _, rel := range CriticalFiles {
		if seen[rel] {
			continue
		}
		if cand, ok := c.readIfExists(rel, ctxengine.CategoryCritical); ok {
			req.Context = append(req.Context, cand)
			seen[rel] = true
		}
	}

	req.Context = append(req.Context, c.glob(StoryBiblePatterns, ctxengine.CategoryStoryBible, seen)...)
	req.Reference = append(req.Reference, c.glob(ChapterPatterns, ctxengine.CategoryChapter, seen)...)
	if extra, ok := agentExtras[agent]; ok {
		req.Reference = append(req.Reference, c.glob(extra, ctxengine.CategoryChapter, seen)...)
	}
	return req
}

func (c *Collector) glob(patterns []string, cat ctxengine.Category, seen map[string]bool) []ctxengine.Candidate {
	paths, err := c.reader.List(patterns...)
	if err != nil {
		c.logger.Warn("listing project files failed", "patterns", patterns, "error", err)
		return nil
	}
	out := make([]ctxengine.Candidate, 0, len(paths))
	for _, rel := range paths {
		if seen[rel] {
			continue
		}
		if cand, ok := c.read(rel, cat); ok {
			out = append(out, cand)
			seen[rel] = true
		}
	}
	return out
}

func (c *Collector) readIfExists(rel string, cat ctxengine.Category) (ctxengine.Candidate, bool) {
	paths, err := c.reader.List(rel)
	if err != nil || !slices.Contains(paths, rel) {
		return ctxengine.Candidate{}, false
	}
	return c.read(rel, cat)
}

func (c *Collector) read(rel string, cat ctxengine.Category) (ctxengine.Candidate, bool) {
	content, err := c.reader.ReadFile(rel)
	if err != nil {
		c.logger.Debug("skipping unreadable file", "path", rel, "error", err)
		return ctxengine.Candidate{}, false
	}
	return ctxengine.NewCandidate(rel, content, cat, c.estimator), true
}
