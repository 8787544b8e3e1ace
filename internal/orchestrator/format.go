package orchestrator

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatReview renders a review as markdown for the author: up to six
// strengths, five areas for improvement, three priority suggestions and
// the synthesis.
func FormatReview(r Review) string {
	var lines []string
	lines = append(lines,
		"\n---\n",
		"## Literary Agent Analysis\n",
		fmt.Sprintf("*Analysis completed in %ss*\n", strconv.FormatFloat(r.ProcessingSeconds, 'f', -1, 64)),
	)

	var strengths []string
	for _, a := range r.Analyses {
		for _, s := range a.Strengths[:min(len(a.Strengths), 2)] {
			strengths = append(strengths, fmt.Sprintf("- %s (%s)", s, a.Agent.DisplayName()))
		}
	}
	if len(strengths) > 0 {
		lines = append(lines, "### Strengths Identified\n")
		lines = append(lines, strengths[:min(len(strengths), 6)]...)
		lines = append(lines, "")
	}

	if len(r.CriticalIssues) > 0 {
		lines = append(lines, "\n### Areas for Improvement\n")
		for _, issue := range r.CriticalIssues[:min(len(r.CriticalIssues), 5)] {
			if issue.Issue != "" {
				lines = append(lines, fmt.Sprintf("- %s (%s)", issue.Issue, issue.Agent.DisplayName()))
			}
		}
		lines = append(lines, "")
	}

	var high []Suggestion
	for _, s := range r.Suggestions {
		if s.Priority.rank() == 0 {
			high = append(high, s)
		}
	}
	if len(high) > 0 {
		lines = append(lines, "\n### Priority Suggestions\n")
		for i, s := range high[:min(len(high), 3)] {
			lines = append(lines, fmt.Sprintf("%d. **%s**", i+1, s.Change))
			if s.Rationale != "" {
				lines = append(lines, "   - "+s.Rationale)
			}
			lines = append(lines, fmt.Sprintf("   - *Source: %s*", s.Source.DisplayName()))
		}
		lines = append(lines, "")
	}

	if r.Synthesis != "" {
		lines = append(lines, "\n### Overall Assessment\n", r.Synthesis)
	}
	return strings.Join(lines, "\n")
}
