package gateway

import (
	"net/http"
	"strings"

	"github.com/catonblt/novelbuddies/internal/fileops"
	"github.com/catonblt/novelbuddies/internal/orchestrator"
	"github.com/catonblt/novelbuddies/internal/security"
)

// operationsRequest carries either a model response to parse or an
// explicit list, typically operations the author confirmed.
type operationsRequest struct {
	ResponseText string       `json:"response_text"`
	Operations   []fileops.Op `json:"operations"`
	Autonomy     *int         `json:"autonomy"`
}

// ops returns the requested operations, parsing ResponseText when no list
// is given.
func (req operationsRequest) ops() ([]fileops.Op, []fileops.Rejection) {
	if len(req.Operations) > 0 || strings.TrimSpace(req.ResponseText) == "" {
		return req.Operations, nil
	}
	parsed := fileops.Parse(req.ResponseText)
	return parsed.Ops, parsed.Rejected
}

type applyResponse struct {
	fileops.BatchResult
	Rejected []fileops.Rejection `json:"rejected,omitempty"`
}

func (g *Gateway) handleApplyOperations(w http.ResponseWriter, r *http.Request) {
	entry := projectFrom(r)
	var req operationsRequest
	if !g.decode(w, r, &req) {
		return
	}
	ops, rejected := req.ops()
	if len(ops) == 0 {
		writeJSON(w, http.StatusBadRequest, struct {
			Error    string              `json:"error"`
			Rejected []fileops.Rejection `json:"rejected,omitempty"`
		}{"no valid operations", rejected})
		return
	}
	if g.dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, "file operations are not available")
		return
	}
	if !g.allow(w, security.KindOperations, entry) {
		return
	}

	res := g.dispatcher.Apply(r.Context(), fileops.Target{Root: entry.Path, ProjectID: entry.Metadata.ID}, ops)
	g.logger.Info("operations applied",
		"project", entry.Metadata.ID,
		"total", res.Total,
		"successful", res.Successful,
		"committed", res.Committed,
	)
	writeJSON(w, http.StatusOK, applyResponse{BatchResult: res, Rejected: rejected})
}

type parseResponse struct {
	Operations          []fileops.Op        `json:"operations"`
	Rejected            []fileops.Rejection `json:"rejected,omitempty"`
	RequireConfirmation bool                `json:"require_confirmation"`
}

// handleParseOperations parses a response without applying it and reports
// whether the author's autonomy level requires confirmation.
func (g *Gateway) handleParseOperations(w http.ResponseWriter, r *http.Request) {
	var req operationsRequest
	if !g.decode(w, r, &req) {
		return
	}
	parsed := fileops.Parse(req.ResponseText)

	var cfg orchestrator.Config
	if g.orchestrator != nil {
		cfg = g.orchestrator.Config()
	}
	ops := parsed.Ops
	if ops == nil {
		ops = []fileops.Op{}
	}
	writeJSON(w, http.StatusOK, parseResponse{
		Operations:          ops,
		Rejected:            parsed.Rejected,
		RequireConfirmation: len(ops) > 0 && (cfg.RequiresConfirmation(req.Autonomy) || g.dispatcher == nil),
	})
}
