// Package app is the composition root shared by the novelbuddy commands:
// it loads configuration, wires the services between modules, and runs
// the server until a shutdown signal.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/catonblt/novelbuddies/internal/config"
)

// DefaultProjectsDir is the projects root under the home directory.
const DefaultProjectsDir = "NovelBuddies"

const closeTimeout = 10 * time.Second

// RunParams configures the server loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// LogLevel overrides the configured level when non-empty.
	LogLevel string
}

// LoadConfig resolves, loads and validates the configuration at path, or
// at the first standard location when path is empty.
func LoadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = resolved
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Run loads configuration, starts all modules, and blocks until SIGINT or
// SIGTERM.
func Run(params RunParams) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, params)
}

// Serve is Run without signal handling: it blocks until ctx is done. The
// OS service wrapper drives it with its own stop signal.
func Serve(ctx context.Context, params RunParams) error {
	cfg, cfgPath, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}

	rt, err := Build(ctx, cfg, BuildOptions{DataDir: params.DataDir, LogLevel: params.LogLevel})
	if err != nil {
		return err
	}
	rt.Logger.Info("starting novelbuddy",
		"version", params.Version,
		"commit", params.Commit,
		"config", cfgPath,
		"projects", rt.ProjectsRoot,
	)

	if err := rt.Start(); err != nil {
		_ = rt.Close(context.Background())
		return err
	}

	<-ctx.Done()
	rt.Logger.Info("shutdown requested", "cause", context.Cause(ctx))

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := rt.Close(closeCtx); err != nil {
		return fmt.Errorf("app: shutdown: %w", err)
	}
	rt.Logger.Info("shutdown complete")
	return nil
}

// ProjectsRoot returns the configured projects root with a leading "~"
// expanded, or ~/NovelBuddies when unset.
func ProjectsRoot(cfg *config.Config) (string, error) {
	root := cfg.Projects.Root
	if root != "" && !strings.HasPrefix(root, "~") {
		return filepath.Clean(root), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("app: resolve projects root: %w", err)
	}
	if root == "" {
		return filepath.Join(home, DefaultProjectsDir), nil
	}
	rest := strings.TrimPrefix(root, "~")
	if rest != "" && rest[0] != '/' && rest[0] != filepath.Separator {
		return "", errors.New("app: projects.root may only use ~ for the current user")
	}
	return filepath.Join(home, rest), nil
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/novelbuddy/novelbuddy.yaml → ~/.config/novelbuddy/novelbuddy.yaml → ./novelbuddy.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "novelbuddy", "novelbuddy.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "novelbuddy", "novelbuddy.yaml"))
	}

	candidates = append(candidates, "novelbuddy.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/novelbuddy if set, otherwise ~/.local/share/novelbuddy.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "novelbuddy")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "novelbuddy")
}
