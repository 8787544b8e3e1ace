package gateway

import (
	"errors"
	"net/http"
	"strings"

	"github.com/catonblt/novelbuddies/internal/orchestrator"
	"github.com/catonblt/novelbuddies/internal/provider"
)

type reviewRequest struct {
	Content     string                   `json:"content"`
	ContentType orchestrator.ContentType `json:"content_type"`
}

type reviewResponse struct {
	orchestrator.Review
	Formatted string `json:"formatted"`
}

// handleReview runs the content past every review agent. It blocks until
// the last agent answers. An unset content type is detected from the
// content itself.
func (g *Gateway) handleReview(w http.ResponseWriter, r *http.Request) {
	entry := projectFrom(r)
	var req reviewRequest
	if !g.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if g.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "review is not available")
		return
	}
	if req.ContentType == "" {
		req.ContentType = orchestrator.DetectContentType(req.Content)
	}

	review, err := g.pipeline.Review(r.Context(), req.Content, req.ContentType, entry.Metadata)
	switch {
	case errors.Is(err, provider.ErrNoProvider):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		g.logger.Warn("review failed", "project", entry.Metadata.ID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reviewResponse{Review: review, Formatted: orchestrator.FormatReview(review)})
}
