// Package mcpserver exposes one novel project to MCP clients over stdio.
//
// Each tool is a struct holding its dependencies, with Definition returning
// the mcp.Tool schema and Handle serving the call. Every tool works on the
// single project the server was started for.
package mcpserver

import (
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	ctxengine "github.com/catonblt/novelbuddies/internal/context"
	"github.com/catonblt/novelbuddies/internal/fileops"
	"github.com/catonblt/novelbuddies/internal/memory"
	"github.com/catonblt/novelbuddies/internal/patch"
	"github.com/catonblt/novelbuddies/internal/project"
)

// Name is the server name announced during initialization.
const Name = "novelbuddy"

// Options configure New. Project, Assembler and Dispatcher are required.
type Options struct {
	Project    project.Entry
	Assembler  *ctxengine.Assembler
	Dispatcher *fileops.Dispatcher
	Patcher    *patch.Engine
	// Memory may be nil, in which case query_memory reports it unavailable.
	Memory  memory.Service
	Version string
	Logger  *slog.Logger
}

// New creates the MCP server with every tool registered.
func New(opts Options) (*server.MCPServer, error) {
	if opts.Project.Path == "" {
		return nil, errors.New("mcpserver: project is required")
	}
	if opts.Assembler == nil || opts.Dispatcher == nil {
		return nil, errors.New("mcpserver: assembler and dispatcher are required")
	}
	if opts.Patcher == nil {
		opts.Patcher = patch.NewEngine(patch.Config{})
	}
	if opts.Memory == nil {
		opts.Memory = memory.Unavailable{}
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("component", "mcp", "project", opts.Project.Metadata.ID)

	s := server.NewMCPServer(
		Name,
		opts.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(instructions(opts.Project)),
	)

	assemble := NewAssembleTool(opts.Project, opts.Assembler, logger)
	s.AddTool(assemble.Definition(), assemble.Handle)

	apply := NewApplyTool(opts.Project, opts.Dispatcher)
	s.AddTool(apply.Definition(), apply.Handle)

	fuzzy := NewPatchTool(opts.Project, opts.Patcher, opts.Dispatcher)
	s.AddTool(fuzzy.Definition(), fuzzy.Handle)

	query := NewQueryTool(opts.Project, opts.Memory)
	s.AddTool(query.Definition(), query.Handle)

	classify := NewClassifyTool()
	s.AddTool(classify.Definition(), classify.Handle)

	logger.Info("mcp server ready", "tools", 5)
	return s, nil
}

// ServeStdio serves s on stdin and stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func instructions(p project.Entry) string {
	title := p.Metadata.Title
	if title == "" {
		title = p.Name
	}
	return "You are connected to the novel project \"" + title + "\". " +
		"Use assemble_context to see which project files fit the context window, " +
		"query_memory to search earlier drafts and notes, and apply_file_operations " +
		"or fuzzy_patch to change files. Paths are relative to the project root."
}
