package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/catonblt/novelbuddies/internal/memory"
	"github.com/catonblt/novelbuddies/internal/project"
)

const maxQueryResults = 20

// QueryTool handles query_memory.
type QueryTool struct {
	project project.Entry
	memory  memory.Service
}

// NewQueryTool creates a QueryTool.
func NewQueryTool(p project.Entry, svc memory.Service) *QueryTool {
	return &QueryTool{project: p, memory: svc}
}

// Definition returns the MCP tool definition for query_memory.
func (t *QueryTool) Definition() mcp.Tool {
	return mcp.NewTool("query_memory",
		mcp.WithDescription(
			"Search the project's indexed files (chapters, characters, story bible, notes) "+
				"for passages relevant to a question. Results cite their source file and chunk.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Question or keywords"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Max chunks returned (default: 5, max: 20)"),
		),
	)
}

// Handle processes the query_memory tool call.
func (t *QueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	if !t.memory.Available() {
		return mcp.NewToolResultError(memory.MsgUnavailable), nil
	}
	n := min(max(intArg(req, "max_results", memory.DefaultQueryResults), 1), maxQueryResults)
	return mcp.NewToolResultText(t.memory.Query(ctx, t.project.Path, t.project.Metadata.ID, query, n)), nil
}
