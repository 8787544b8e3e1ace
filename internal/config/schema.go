// Package config loads the novelbuddy YAML configuration, expands
// environment variables in it, and validates every section.
package config

import (
	"gopkg.in/yaml.v3"

	ctxengine "github.com/catonblt/novelbuddies/internal/context"
	"github.com/catonblt/novelbuddies/internal/cron"
	"github.com/catonblt/novelbuddies/internal/indexer"
	"github.com/catonblt/novelbuddies/internal/logging"
	"github.com/catonblt/novelbuddies/internal/orchestrator"
	"github.com/catonblt/novelbuddies/internal/patch"
	"github.com/catonblt/novelbuddies/internal/security"
	"github.com/catonblt/novelbuddies/internal/telemetry"
	"github.com/catonblt/novelbuddies/internal/vcs"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "memory.sqlite").
	Modules map[string]yaml.Node `yaml:"modules"`

	Projects     ProjectsConfig          `yaml:"projects"`
	Context      ctxengine.ContextConfig `yaml:"context"`
	Patch        patch.Config            `yaml:"patch"`
	Orchestrator orchestrator.Config     `yaml:"orchestrator"`
	Indexer      indexer.Config          `yaml:"indexer"`
	Cron         cron.Config             `yaml:"cron"`
	Telemetry    telemetry.Config        `yaml:"telemetry"`
	Log          logging.Config          `yaml:"log"`
	VCS          vcs.Config              `yaml:"vcs"`
	Security     SecurityConfig          `yaml:"security"`
}

// ProjectsConfig locates the novel projects.
type ProjectsConfig struct {
	// Root is the directory holding one subdirectory per project.
	// Defaults to ~/NovelBuddies.
	Root string `yaml:"root"`

	// AutoCommit commits the project after every applied batch. Defaults to true.
	AutoCommit *bool `yaml:"auto_commit"`
}

// AutoCommitEnabled reports whether applied batches are committed.
func (p ProjectsConfig) AutoCommitEnabled() bool {
	return p.AutoCommit == nil || *p.AutoCommit
}

// SecurityConfig holds request limits and the audit trail destination.
type SecurityConfig struct {
	RateLimits security.RateLimitConfig `yaml:"rate_limits"`

	// AuditLog is a JSONL file receiving one record per file operation.
	// Empty keeps audit events in the log only.
	AuditLog string `yaml:"audit_log"`
}
