package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/catonblt/novelbuddies/internal/fileops"
	"github.com/catonblt/novelbuddies/internal/patch"
	"github.com/catonblt/novelbuddies/internal/project"
)

// ApplyTool handles apply_file_operations.
type ApplyTool struct {
	project    project.Entry
	dispatcher *fileops.Dispatcher
}

// NewApplyTool creates an ApplyTool.
func NewApplyTool(p project.Entry, d *fileops.Dispatcher) *ApplyTool {
	return &ApplyTool{project: p, dispatcher: d}
}

// Definition returns the MCP tool definition for apply_file_operations.
func (t *ApplyTool) Definition() mcp.Tool {
	return mcp.NewTool("apply_file_operations",
		mcp.WithDescription(
			"Apply every <file_operation> block found in the text to the project. "+
				"Supported types: create, update, append, insert, patch, delete. "+
				"Operations run in order and a failed one does not stop the rest.",
		),
		mcp.WithString("response_text",
			mcp.Required(),
			mcp.Description("Text containing <file_operation> blocks"),
		),
	)
}

type applyResult struct {
	fileops.BatchResult
	Rejected []fileops.Rejection `json:"rejected,omitempty"`
}

// Handle processes the apply_file_operations tool call.
func (t *ApplyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("response_text", "")
	if text == "" {
		return mcp.NewToolResultError("'response_text' is required"), nil
	}
	parsed := fileops.Parse(text)
	if len(parsed.Ops) == 0 {
		msg := "no valid <file_operation> blocks found"
		if n := len(parsed.Rejected); n > 0 {
			msg = fmt.Sprintf("%s (%d rejected: %s)", msg, n, parsed.Rejected[0].Reason)
		}
		return mcp.NewToolResultError(msg), nil
	}
	res := t.dispatcher.Apply(ctx, target(t.project), parsed.Ops)
	return jsonResult(applyResult{BatchResult: res, Rejected: parsed.Rejected})
}

// PatchTool handles fuzzy_patch.
type PatchTool struct {
	project    project.Entry
	patcher    *patch.Engine
	dispatcher *fileops.Dispatcher
}

// NewPatchTool creates a PatchTool.
func NewPatchTool(p project.Entry, patcher *patch.Engine, d *fileops.Dispatcher) *PatchTool {
	return &PatchTool{project: p, patcher: patcher, dispatcher: d}
}

// Definition returns the MCP tool definition for fuzzy_patch.
func (t *PatchTool) Definition() mcp.Tool {
	return mcp.NewTool("fuzzy_patch",
		mcp.WithDescription(
			"Replace a passage in a project file. The passage is located exactly if possible, "+
				"then ignoring surrounding whitespace, then with normalized whitespace and quotes, "+
				"and finally by fuzzy similarity. Without write=true only a diff preview is returned.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Project-relative file path"),
		),
		mcp.WithString("find",
			mcp.Required(),
			mcp.Description("Passage to replace"),
		),
		mcp.WithString("replace",
			mcp.Description("Replacement text (default: empty, which removes the passage)"),
		),
		mcp.WithBoolean("write",
			mcp.Description("Write the change to disk (default: false)"),
		),
	)
}

type patchPreview struct {
	Path     string         `json:"path"`
	Strategy patch.Strategy `json:"strategy"`
	Score    float64        `json:"score"`
	Diff     string         `json:"diff"`
}

// Handle processes the fuzzy_patch tool call.
func (t *PatchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	find := req.GetString("find", "")
	if path == "" || find == "" {
		return mcp.NewToolResultError("'path' and 'find' are required"), nil
	}
	replace := req.GetString("replace", "")

	if boolArg(req, "write", false) {
		op := fileops.Op{Kind: fileops.KindPatch, Path: path, Find: find, Content: replace, Reason: "fuzzy_patch"}
		res := t.dispatcher.Apply(ctx, target(t.project), []fileops.Op{op})
		if res.Successful == 0 {
			return mcp.NewToolResultError(res.Results[0].Message), nil
		}
		return jsonResult(res.Results[0])
	}

	content, err := project.NewReader(t.project.Path).ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return mcp.NewToolResultError("file not found: " + path), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	pr, err := t.patcher.Apply(content, find, replace)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("patch failed for %s: %v", path, err)), nil
	}
	return jsonResult(patchPreview{Path: path, Strategy: pr.Match.Strategy, Score: pr.Match.Score, Diff: pr.Diff})
}

func target(p project.Entry) fileops.Target {
	return fileops.Target{Root: p.Path, ProjectID: p.Metadata.ID}
}
