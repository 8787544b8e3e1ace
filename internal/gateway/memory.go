package gateway

import (
	"errors"
	"net/http"
	"strings"

	"github.com/catonblt/novelbuddies/internal/indexer"
	"github.com/catonblt/novelbuddies/internal/memory"
	"github.com/catonblt/novelbuddies/internal/project"
	"github.com/catonblt/novelbuddies/internal/security"
)

type memoryQueryRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type memoryQueryResponse struct {
	Result    string `json:"result"`
	Available bool   `json:"available"`
}

func (g *Gateway) handleMemoryQuery(w http.ResponseWriter, r *http.Request) {
	entry := projectFrom(r)
	var req memoryQueryRequest
	if !g.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = memory.DefaultQueryResults
	}
	writeJSON(w, http.StatusOK, memoryQueryResponse{
		Result:    g.memory.Query(r.Context(), entry.Path, entry.Metadata.ID, req.Query, req.MaxResults),
		Available: g.memory.Available(),
	})
}

type reindexRequest struct {
	Reset bool `json:"reset"`
}

// handleMemoryReindex rebuilds the project index in the request goroutine.
// An empty body reindexes over the existing chunks.
func (g *Gateway) handleMemoryReindex(w http.ResponseWriter, r *http.Request) {
	entry := projectFrom(r)
	var req reindexRequest
	if r.ContentLength != 0 && !g.decode(w, r, &req) {
		return
	}
	if !g.allow(w, security.KindReindex, entry) {
		return
	}

	res, err := indexer.Reindex(r.Context(), g.memory, project.NewReader(entry.Path), entry.Metadata.ID, req.Reset, g.logger)
	g.audit.Log(security.AuditEvent{
		Type:    security.EventReindex,
		Project: entry.Metadata.ID,
		Success: err == nil,
	})
	switch {
	case errors.Is(err, indexer.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		g.logger.Error("reindex failed", "project", entry.Metadata.ID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (g *Gateway) handleMemoryStats(w http.ResponseWriter, r *http.Request) {
	entry := projectFrom(r)
	writeJSON(w, http.StatusOK, g.memory.Stats(r.Context(), entry.Path, entry.Metadata.ID))
}
