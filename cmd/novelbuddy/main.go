// Package main is the entry point for the novelbuddy CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/catonblt/novelbuddies/internal/core"
	"github.com/catonblt/novelbuddies/pkg/app"

	// Compiled-in modules.
	_ "github.com/catonblt/novelbuddies/modules/memory/sqlite"
	_ "github.com/catonblt/novelbuddies/modules/provider/anthropic"
	_ "github.com/catonblt/novelbuddies/modules/provider/openai"
)

// Set with -ldflags -X at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// envFiles are loaded from the working directory before any command runs.
// Variables already set in the environment win.
var envFiles = []string{".env", ".env.local"}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "novelbuddy",
		Short:         "A team of AI literary agents working on your manuscript",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			loadEnvFiles(envFiles)
		},
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.PersistentFlags().String("log-level", "", "Override the configured log level")
	root.PersistentFlags().String("data-dir", "", "Override the data directory")

	root.AddCommand(
		versionCmd(),
		serveCmd(),
		configCmd(),
		initCmd(),
		assembleCmd(),
		patchCmd(),
		opsCmd(),
		exportCmd(),
		reindexCmd(),
		mcpCmd(),
		serviceCmd(),
	)
	return root
}

func loadEnvFiles(files []string) {
	for _, f := range files {
		// Missing files are the common case.
		_ = godotenv.Load(f)
	}
}

// runParams reads the persistent flags shared by every server command.
func runParams(cmd *cobra.Command) app.RunParams {
	cfgPath, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	return app.RunParams{
		ConfigPath: cfgPath,
		Version:    version,
		Commit:     commit,
		Date:       date,
		DataDir:    dataDir,
		LogLevel:   logLevel,
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "novelbuddy %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				fmt.Fprintln(out, "\nNo compiled modules.")
				return
			}
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range mods {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the server with all configured modules",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(runParams(cmd))
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration and provision its modules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.LoadConfig(args[0])
			if err != nil {
				return err
			}
			params := runParams(cmd)
			rt, err := app.Build(context.Background(), cfg, app.BuildOptions{
				DataDir:    params.DataDir,
				LogLevel:   params.LogLevel,
				NoSchedule: true,
			})
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.Background()) }()

			out := cmd.OutOrStdout()
			mods := rt.App.Modules()
			fmt.Fprintf(out, "Configuration OK (%d modules)\n", len(mods))
			for _, id := range mods {
				fmt.Fprintf(out, "  %s\n", id)
			}
			fmt.Fprintf(out, "Projects root: %s\n", rt.ProjectsRoot)
			return nil
		},
	})
	return cmd
}
