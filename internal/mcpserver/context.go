package mcpserver

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	ctxengine "github.com/catonblt/novelbuddies/internal/context"
	"github.com/catonblt/novelbuddies/internal/project"
)

// AssembleTool handles assemble_context.
type AssembleTool struct {
	project   project.Entry
	assembler *ctxengine.Assembler
	logger    *slog.Logger
}

// NewAssembleTool creates an AssembleTool.
func NewAssembleTool(p project.Entry, assembler *ctxengine.Assembler, logger *slog.Logger) *AssembleTool {
	return &AssembleTool{project: p, assembler: assembler, logger: logger}
}

// Definition returns the MCP tool definition for assemble_context.
func (t *AssembleTool) Definition() mcp.Tool {
	return mcp.NewTool("assemble_context",
		mcp.WithDescription(
			"Select the project files that fit the model's context window, in priority order: "+
				"the active file, planning and story-bible files, then the most recent chapters.",
		),
		mcp.WithString("active_file",
			mcp.Description("Project-relative path of the file being edited"),
		),
		mcp.WithString("agent",
			mcp.Description("Agent whose reference material to include, e.g. prose_stylist (default: general)"),
		),
		mcp.WithBoolean("include_content",
			mcp.Description("Return the assembled context block along with the report (default: false)"),
		),
	)
}

type assembleResult struct {
	Report  ctxengine.Report `json:"report"`
	Context string           `json:"context,omitempty"`
}

// Handle processes the assemble_context tool call.
func (t *AssembleTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agent := req.GetString("agent", "general")
	collector := project.NewCollector(project.NewReader(t.project.Path), t.assembler.Estimator(), t.logger)
	assembly := t.assembler.Assemble(ctx, collector.Collect(req.GetString("active_file", ""), agent))

	res := assembleResult{Report: assembly.Report}
	if boolArg(req, "include_content", false) {
		res.Context = assembly.Context
	}
	return jsonResult(res)
}
