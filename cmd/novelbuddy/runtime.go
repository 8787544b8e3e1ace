package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/catonblt/novelbuddies/internal/config"
	"github.com/catonblt/novelbuddies/internal/logging"
	"github.com/catonblt/novelbuddies/internal/project"
	"github.com/catonblt/novelbuddies/pkg/app"
)

// oneShotLogLevel keeps one-shot commands quiet unless --log-level says
// otherwise.
const oneShotLogLevel = "warn"

const closeTimeout = 10 * time.Second

// optionalConfig loads the configuration named by --config, or the first
// one found in the standard locations. With neither, it returns an empty
// configuration so project commands work without a config file.
func optionalConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		resolved, err := app.ResolveConfigPath()
		if err != nil {
			return &config.Config{Version: "1"}, nil
		}
		path = resolved
	}
	cfg, _, err := app.LoadConfig(path)
	return cfg, err
}

// buildRuntime wires a runtime for a one-shot command. Only the modules in
// namespaces are loaded and no periodic jobs are registered.
func buildRuntime(cmd *cobra.Command, cfg *config.Config, namespaces []string, logOut io.Writer) (*app.Runtime, error) {
	params := runParams(cmd)
	level := params.LogLevel
	if level == "" {
		level = oneShotLogLevel
	}
	if namespaces == nil {
		namespaces = []string{}
	}
	return app.Build(cmd.Context(), cfg, app.BuildOptions{
		Namespaces: namespaces,
		DataDir:    params.DataDir,
		LogLevel:   level,
		LogWriter:  logOut,
		NoSchedule: true,
	})
}

// openProject opens arg as a project directory. A bare name that is not a
// project relative to the working directory is looked up under the
// configured projects root.
func openProject(cfg *config.Config, arg string) (project.Entry, error) {
	entry, err := project.Open(arg)
	if err == nil || !errors.Is(err, project.ErrNoMetadata) || filepath.IsAbs(arg) || filepath.Base(arg) != arg {
		return entry, err
	}
	root, rerr := app.ProjectsRoot(cfg)
	if rerr != nil {
		return project.Entry{}, err
	}
	named, nerr := project.Open(filepath.Join(root, arg))
	if nerr != nil {
		return project.Entry{}, err
	}
	return named, nil
}

// cliLogger logs to stderr for commands that do not build a runtime.
func cliLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = oneShotLogLevel
	}
	logger, _, err := logging.New(logging.Config{Level: level}, cmd.ErrOrStderr(), nil)
	if err != nil {
		return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	}
	return logger
}

func closeRuntime(rt *app.Runtime) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	_ = rt.Close(ctx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
