package memory

import (
	"context"

	ctxengine "github.com/catonblt/novelbuddies/internal/context"
)

// SectionHeader opens the memory block in a system prompt.
const SectionHeader = "## RELEVANT PROJECT MEMORY\n\n"

// Section queries svc and formats the result as a system prompt section
// of at most maxTokens. It returns "" when the service is unavailable or
// has nothing relevant, so callers can append it unconditionally.
func Section(
	ctx context.Context,
	svc Service,
	projectPath, projectID, query string,
	maxResults, maxTokens int,
	estimator ctxengine.TokenEstimator,
) string {
	if svc == nil || !svc.Available() || maxTokens <= 0 {
		return ""
	}
	result := svc.Query(ctx, projectPath, projectID, query, maxResults)
	if IsStatus(result) {
		return ""
	}
	body := ctxengine.Truncate(result, maxTokens-estimator.Estimate(SectionHeader), estimator)
	if body == "" {
		return ""
	}
	return SectionHeader + body
}
