package gateway

import (
	"net/http"
	"time"

	"github.com/catonblt/novelbuddies/internal/indexer"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds int64                `json:"uptime_seconds"`
	ProjectsRoot  string               `json:"projects_root"`
	Model         string               `json:"model,omitempty"`
	ContextWindow int                  `json:"context_window,omitempty"`
	Clients       int                  `json:"websocket_clients"`
	Indexer       *indexer.Stats       `json:"indexer,omitempty"`
	Scheduled     map[string]time.Time `json:"scheduled,omitempty"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			UptimeSeconds: int64(time.Since(g.startedAt).Seconds()),
			ProjectsRoot:  g.root,
		}
		if g.hub != nil {
			resp.Clients = g.hub.Len()
		}
		if g.provider != nil {
			resp.Model = g.provider.ModelName()
			resp.ContextWindow = g.provider.ContextWindowSize()
		}
		if g.queue != nil {
			stats := g.queue.Stats()
			resp.Indexer = &stats
		}
		if g.scheduler != nil {
			resp.Scheduled = g.scheduler.Next()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
