package gateway

import (
	"net/http"

	"github.com/catonblt/novelbuddies/internal/project"
	"github.com/catonblt/novelbuddies/internal/provider"
)

// contextRequest is the body of POST /api/projects/{project}/context.
// Agent selects the category file patterns; empty means general.
type contextRequest struct {
	History    []provider.LLMMessage `json:"history"`
	ActiveFile string                `json:"active_file"`
	Agent      string                `json:"agent"`
}

// handleContextReport runs the context budgeter for the project and
// returns its report without calling the model.
func (g *Gateway) handleContextReport(w http.ResponseWriter, r *http.Request) {
	entry := projectFrom(r)
	var req contextRequest
	if !g.decode(w, r, &req) {
		return
	}
	if g.assembler == nil {
		writeError(w, http.StatusServiceUnavailable, "context assembly is not available")
		return
	}
	agent := req.Agent
	if agent == "" {
		agent = "general"
	}

	collector := project.NewCollector(project.NewReader(entry.Path), g.assembler.Estimator(), g.logger)
	areq := collector.Collect(req.ActiveFile, agent)
	areq.History = req.History
	assembly := g.assembler.Assemble(r.Context(), areq)
	writeJSON(w, http.StatusOK, assembly.Report)
}
