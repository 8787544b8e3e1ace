package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/catonblt/novelbuddies/internal/mcpserver"
	"github.com/catonblt/novelbuddies/internal/patch"
)

func mcpCmd() *cobra.Command {
	var projectArg string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve one project to MCP clients over stdio",
		Long: "Serve one project to MCP clients over stdio.\n" +
			"Standard output carries the protocol, so logs go to standard error.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if projectArg == "" {
				return errors.New("--project is required")
			}
			cfg, err := optionalConfig(cmd)
			if err != nil {
				return err
			}
			entry, err := openProject(cfg, projectArg)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd, cfg, []string{"memory"}, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeRuntime(rt)
			if err := rt.Start(); err != nil {
				return err
			}

			s, err := mcpserver.New(mcpserver.Options{
				Project:    entry,
				Assembler:  rt.Assembler,
				Dispatcher: rt.Dispatcher,
				Patcher:    patch.NewEngine(cfg.Patch),
				Memory:     rt.Memory,
				Version:    version,
				Logger:     rt.Logger,
			})
			if err != nil {
				return err
			}
			rt.Logger.Info("serving MCP over stdio", "project", entry.Metadata.ID, "path", entry.Path)
			return mcpserver.ServeStdio(s)
		},
	}
	cmd.Flags().StringVarP(&projectArg, "project", "p", "", "Project directory, or a project name under the projects root")
	return cmd
}
