package patch

import (
	"fmt"
	"strings"
)

// Strategy names the cascade step that produced a match.
type Strategy string

// Strategy constants, in the order they are tried.
const (
	StrategyExact      Strategy = "exact"
	StrategyStripped   Strategy = "stripped"
	StrategyNormalized Strategy = "normalized"
	StrategyFuzzy      Strategy = "fuzzy"
)

// Match locates the find text in the original, non-normalized content.
type Match struct {
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Score    float64  `json:"score"`
	Strategy Strategy `json:"strategy"`
}

// Result is the outcome of Engine.Apply.
type Result struct {
	// Content is the patched text, or the input unchanged on failure.
	Content string `json:"-"`
	Match   Match  `json:"match"`
	// Diff is a unified diff of the change.
	Diff string `json:"diff,omitempty"`
}

// Engine applies find/replace patches through a cascade of increasingly
// tolerant matchers: exact, stripped, whitespace-normalized and finally a
// fuzzy sliding window.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine. Zero config fields take their defaults.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Config returns the defaulted configuration.
func (e *Engine) Config() Config { return e.cfg }

// Apply replaces the first match of find in content with replace. On error
// Result.Content is content, byte for byte.
func (e *Engine) Apply(content, find, replace string) (Result, error) {
	m, err := e.Find(content, find)
	if err != nil {
		return Result{Content: content}, err
	}
	out := content[:m.Start] + replace + content[m.End:]
	return Result{
		Content: out,
		Match:   m,
		Diff:    udiffPreview(content, out),
	}, nil
}

// Find locates find in content without modifying anything.
func (e *Engine) Find(content, find string) (Match, error) {
	if strings.TrimSpace(find) == "" {
		return Match{}, ErrEmptyFind
	}

	if i := strings.Index(content, find); i >= 0 {
		return Match{Start: i, End: i + len(find), Score: 1, Strategy: StrategyExact}, nil
	}

	if stripped := strings.TrimSpace(find); stripped != find {
		if i := strings.Index(content, stripped); i >= 0 {
			return Match{Start: i, End: i + len(stripped), Score: 1, Strategy: StrategyStripped}, nil
		}
	}

	normFind := Normalize(find)
	normContent := Normalize(content)
	if m, ok := e.findNormalized(content, normContent, normFind); ok {
		return m, nil
	}

	best, ok := e.findFuzzy(content, normFind)
	if ok {
		return best, nil
	}
	if best.Score < 0 {
		// Every window was pruned on its byte counts before being scored.
		return Match{}, fmt.Errorf("%w (no passage came near %.2f similarity): %s",
			ErrNoMatch, e.cfg.Threshold, Hint)
	}
	return Match{}, fmt.Errorf("%w (best similarity %.2f, need %.2f): %s",
		ErrNoMatch, best.Score, e.cfg.Threshold, Hint)
}

func (e *Engine) findNormalized(content, normContent, normFind string) (Match, bool) {
	i := strings.Index(normContent, normFind)
	if i < 0 {
		return Match{}, false
	}
	window := clamp(len(content)/10, e.cfg.MappingWindowMin, e.cfg.MappingWindowMax)
	start, end := MapSpan(content, normContent, i, i+len(normFind), window)
	start, end = trimSpan(content, start, end)
	if Normalize(content[start:end]) != normFind {
		return Match{}, false
	}
	return Match{Start: start, End: end, Score: 1, Strategy: StrategyNormalized}, true
}

// findFuzzy slides windows of several sizes over content and keeps the one
// most similar to normFind. The returned Match carries the best score even
// when it is below the threshold.
func (e *Engine) findFuzzy(content, normFind string) (Match, bool) {
	best := Match{Score: -1, Strategy: StrategyFuzzy}
	n := len(normFind)
	if n == 0 || len(content) == 0 {
		return best, false
	}

	minSize := max(1, int(float64(n)*e.cfg.MinWindowRatio))
	maxSize := max(minSize, int(float64(n)*e.cfg.MaxWindowRatio))
	sizeStep := max(1, (maxSize-minSize)/e.cfg.WindowSamples)
	stride := max(1, minSize/e.cfg.StepDivisor)
	findHist := newHistogram(normFind)

scan:
	for size := minSize; size <= maxSize; size += sizeStep {
		for start := 0; start < len(content); start += stride {
			s := runeStart(content, start)
			end := runeStart(content, min(s+size, len(content)))
			window := Normalize(content[s:end])
			if window != "" && quickRatio(findHist, n, window) > max(best.Score, e.cfg.Threshold-1e-9) {
				if score := Similarity(window, normFind); score > best.Score {
					best.Start, best.End, best.Score = s, end, score
					if score >= e.cfg.ShortCircuit {
						break scan
					}
				}
			}
			if end >= len(content) {
				break
			}
		}
	}

	if best.Score < e.cfg.Threshold {
		return best, false
	}
	best.Start, best.End = trimSpan(content, best.Start, best.End)
	return best, true
}

func udiffPreview(before, after string) string {
	return Diff("original", before, after)
}
