package gateway

import (
	"net/http"
	"strconv"

	"github.com/catonblt/novelbuddies/internal/memory"
)

type messagesResponse struct {
	Messages []memory.Message `json:"messages"`
}

// handleListMessages returns the project's chat history, oldest first.
// ?limit=n returns only the n most recent messages.
func (g *Gateway) handleListMessages(w http.ResponseWriter, r *http.Request) {
	entry := projectFrom(r)
	if g.history == nil {
		writeJSON(w, http.StatusOK, messagesResponse{Messages: []memory.Message{}})
		return
	}

	var (
		msgs []memory.Message
		err  error
	)
	if s := r.URL.Query().Get("limit"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		msgs, err = g.history.Recent(r.Context(), entry.Metadata.ID, n)
	} else {
		msgs, err = g.history.All(r.Context(), entry.Metadata.ID)
	}
	if err != nil {
		g.logger.Error("loading history failed", "project", entry.Metadata.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load history")
		return
	}
	if msgs == nil {
		msgs = []memory.Message{}
	}
	writeJSON(w, http.StatusOK, messagesResponse{Messages: msgs})
}

func (g *Gateway) handlePurgeMessages(w http.ResponseWriter, r *http.Request) {
	entry := projectFrom(r)
	if g.history != nil {
		if err := g.history.Purge(r.Context(), entry.Metadata.ID); err != nil {
			g.logger.Error("purging history failed", "project", entry.Metadata.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "could not clear history")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
