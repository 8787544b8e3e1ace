package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/catonblt/novelbuddies/internal/orchestrator"
)

// ClassifyTool handles classify_request.
type ClassifyTool struct{}

// NewClassifyTool creates a ClassifyTool.
func NewClassifyTool() *ClassifyTool { return &ClassifyTool{} }

// Definition returns the MCP tool definition for classify_request.
func (t *ClassifyTool) Definition() mcp.Tool {
	return mcp.NewTool("classify_request",
		mcp.WithDescription(
			"Classify a writing request by content type and list the specialist agents "+
				"that should handle it and the reviewers that should check the result.",
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The author's request"),
		),
	)
}

type classification struct {
	ContentType orchestrator.ContentType `json:"content_type"`
	Agents      []orchestrator.Agent     `json:"agents"`
	Reviewers   []orchestrator.Agent     `json:"reviewers"`
	Routing     string                   `json:"routing,omitempty"`
}

// Handle processes the classify_request tool call.
func (t *ClassifyTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg := req.GetString("message", "")
	if msg == "" {
		return mcp.NewToolResultError("'message' is required"), nil
	}
	ct, agents := orchestrator.Classify(msg)
	reviewers := orchestrator.ReviewersFor(ct)
	return jsonResult(classification{
		ContentType: ct,
		Agents:      agents,
		Reviewers:   reviewers,
		Routing:     orchestrator.Routing(agents, reviewers),
	})
}
