package orchestrator

import (
	"cmp"
	"encoding/json"
	"errors"
	"slices"
	"strings"
)

// Priority ranks a suggestion.
type Priority string

// Priority constants. Anything else sorts as PriorityLow.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch Priority(strings.ToLower(string(p))) {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Suggestion is one recommended change from a review agent.
type Suggestion struct {
	Change    string   `json:"change"`
	Rationale string   `json:"rationale,omitempty"`
	Priority  Priority `json:"priority,omitempty"`
	Source    Agent    `json:"source_agent,omitempty"`
}

// UnmarshalJSON accepts "issue" or "recommendation" in place of "change".
func (s *Suggestion) UnmarshalJSON(data []byte) error {
	var raw struct {
		Change         string   `json:"change"`
		Issue          string   `json:"issue"`
		Recommendation string   `json:"recommendation"`
		Rationale      string   `json:"rationale"`
		Priority       Priority `json:"priority"`
		Source         Agent    `json:"source_agent"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Suggestion{
		Change:    cmp.Or(raw.Change, raw.Issue, raw.Recommendation),
		Rationale: raw.Rationale,
		Priority:  raw.Priority,
		Source:    raw.Source,
	}
	return nil
}

// ExecutiveSummary is the Story Advocate's overview of a review.
type ExecutiveSummary struct {
	OverallQuality string   `json:"overall_quality,omitempty"`
	KeyStrengths   []string `json:"key_strengths,omitempty"`
	CriticalIssues []string `json:"critical_issues,omitempty"`
	OneLineSummary string   `json:"one_line_summary,omitempty"`
}

// Analysis is one agent's review. Fields holds the agent's complete JSON
// reply, including keys specific to its area of focus. When the reply was
// not JSON, RawAnalysis holds the text and ParseError is set. When the
// agent could not be reached, Error is set.
type Analysis struct {
	Agent             Agent             `json:"agent"`
	Strengths         []string          `json:"strengths,omitempty"`
	Concerns          []string          `json:"concerns,omitempty"`
	Suggestions       []Suggestion      `json:"suggestions,omitempty"`
	ExecutiveSummary  *ExecutiveSummary `json:"executive_summary,omitempty"`
	OverallAssessment string            `json:"overall_assessment,omitempty"`
	Fields            map[string]any    `json:"fields,omitempty"`
	RawAnalysis       string            `json:"raw_analysis,omitempty"`
	ParseError        string            `json:"parse_error,omitempty"`
	Error             string            `json:"error,omitempty"`
}

// Failed reports whether the agent produced no usable analysis.
func (a Analysis) Failed() bool { return a.Error != "" }

// Issue is a problem that should be addressed first.
type Issue struct {
	Agent     Agent  `json:"agent"`
	Issue     string `json:"issue"`
	Rationale string `json:"rationale,omitempty"`
}

// errNotJSON is recorded as the parse error of a non-JSON reply.
var errNotJSON = errors.New("response was not valid JSON")

// ParseAnalysis decodes an agent's reply. The JSON object may be wrapped in
// a ```json fence, a plain fence or surrounding prose. Strengths and
// concerns that are not strings, and suggestions that are not objects, are
// ignored.
func ParseAnalysis(agent Agent, text string) Analysis {
	a := Analysis{Agent: agent}
	body := ExtractJSON(text)

	var fields map[string]any
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		a.RawAnalysis = text
		a.ParseError = errNotJSON.Error()
		return a
	}
	a.Fields = fields

	var known struct {
		Strengths         []json.RawMessage `json:"strengths"`
		Concerns          []json.RawMessage `json:"concerns"`
		Suggestions       []json.RawMessage `json:"suggestions"`
		ExecutiveSummary  json.RawMessage   `json:"executive_summary"`
		OverallAssessment json.RawMessage   `json:"overall_assessment"`
	}
	// A type mismatch in one key leaves the others decoded.
	_ = json.Unmarshal([]byte(body), &known)

	a.Strengths = stringsOnly(known.Strengths)
	a.Concerns = stringsOnly(known.Concerns)
	for _, raw := range known.Suggestions {
		var s Suggestion
		if len(raw) == 0 || raw[0] != '{' || json.Unmarshal(raw, &s) != nil {
			continue
		}
		s.Source = agent
		a.Suggestions = append(a.Suggestions, s)
	}
	if len(known.ExecutiveSummary) > 0 && known.ExecutiveSummary[0] == '{' {
		var es ExecutiveSummary
		if json.Unmarshal(known.ExecutiveSummary, &es) == nil {
			a.ExecutiveSummary = &es
		}
	}
	_ = json.Unmarshal(known.OverallAssessment, &a.OverallAssessment)
	return a
}

func stringsOnly(items []json.RawMessage) []string {
	var out []string
	for _, raw := range items {
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ExtractJSON returns the JSON object embedded in text: the body of the
// first ```json fence, else of the first plain fence, else the first
// balanced {...} span. Text with none of these is returned unchanged.
func ExtractJSON(text string) string {
	if i := strings.Index(text, "```json"); i >= 0 {
		rest := text[i+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if start := strings.IndexByte(text, '{'); start >= 0 {
		depth := 0
		for i := start; i < len(text); i++ {
			switch text[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return text
}

// Defaults used when the Story Advocate gave no usable summary.
const (
	SynthesisFallback        = "Analysis complete. See individual agent results for details."
	SynthesisSummaryFallback = "Analysis complete."
)

// Synthesis returns the Story Advocate's overall assessment, falling back
// to its one-line summary.
func Synthesis(analyses []Analysis) string {
	for _, a := range analyses {
		if a.Agent != AgentStoryAdvocate {
			continue
		}
		if a.OverallAssessment != "" {
			return a.OverallAssessment
		}
		if a.ExecutiveSummary != nil {
			return cmp.Or(a.ExecutiveSummary.OneLineSummary, SynthesisSummaryFallback)
		}
	}
	return SynthesisFallback
}

// Suggestions collects every agent's suggestions, highest priority first.
// Agents keep their processing order within a priority.
func Suggestions(analyses []Analysis) []Suggestion {
	var all []Suggestion
	for _, a := range analyses {
		all = append(all, a.Suggestions...)
	}
	slices.SortStableFunc(all, func(x, y Suggestion) int {
		return cmp.Compare(x.Priority.rank(), y.Priority.rank())
	})
	return all
}

// Limits applied by CriticalIssues.
const (
	maxCriticalIssues = 10
	concernsPerAgent  = 2
	issueDedupPrefix  = 50
)

// CriticalIssues gathers high-priority suggestions and each agent's first
// two concerns. Issues that agree in their first 50 characters are kept
// once, and at most ten are returned.
func CriticalIssues(analyses []Analysis) []Issue {
	var candidates []Issue
	for _, a := range analyses {
		for _, s := range a.Suggestions {
			if s.Priority.rank() == 0 {
				candidates = append(candidates, Issue{Agent: a.Agent, Issue: s.Change, Rationale: s.Rationale})
			}
		}
		for _, c := range a.Concerns[:min(len(a.Concerns), concernsPerAgent)] {
			candidates = append(candidates, Issue{Agent: a.Agent, Issue: c})
		}
	}

	seen := make(map[string]bool)
	var out []Issue
	for _, c := range candidates {
		key := runePrefix(c.Issue, issueDedupPrefix)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
		if len(out) == maxCriticalIssues {
			break
		}
	}
	return out
}

func runePrefix(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
