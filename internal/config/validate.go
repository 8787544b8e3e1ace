package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/catonblt/novelbuddies/internal/core"
)

// Validate checks the structural validity of a Config.
// It verifies the version field, ensures every configured module is
// registered, and runs each section's own validation. A configuration with
// no modules is valid: generation and memory then report themselves
// unavailable. All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	// Sorted so the joined error reads the same on every run.
	for _, id := range Resolve(cfg) {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	if root := cfg.Projects.Root; root != "" && !filepath.IsAbs(root) && !strings.HasPrefix(root, "~") {
		errs = append(errs, fmt.Errorf("config: projects.root %q must be an absolute path", root))
	}

	// Section validators carry their own package prefix.
	errs = append(errs, cfg.Context.WithDefaults().Validate())
	errs = append(errs, cfg.Patch.Validate())
	errs = append(errs, cfg.Orchestrator.Validate())
	errs = append(errs, cfg.Cron.Validate())
	errs = append(errs, cfg.Telemetry.Validate())
	errs = append(errs, cfg.Log.Validate())
	errs = append(errs, validateIndexer(cfg))

	return errors.Join(errs...)
}

func validateIndexer(cfg *Config) error {
	var errs []error
	if cfg.Indexer.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("config: indexer.queue_size must be non-negative, got %d", cfg.Indexer.QueueSize))
	}
	if cfg.Indexer.Workers < 0 {
		errs = append(errs, fmt.Errorf("config: indexer.workers must be non-negative, got %d", cfg.Indexer.Workers))
	}
	return errors.Join(errs...)
}
