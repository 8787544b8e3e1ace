// Package cron runs periodic maintenance: full project reindexing and
// rate-limiter pruning.
package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Job defines a periodic background task.
type Job interface {
	// Name returns a unique identifier for this job (used for logging and dedup).
	Name() string

	// Schedule returns a 5-field cron expression (e.g., "0 */6 * * *").
	Schedule() string

	// Run executes the job. Implementations should check ctx.Done() for
	// graceful cancellation.
	Run(ctx context.Context) error
}

// Config holds the job schedules. "off" disables a job.
type Config struct {
	Reindex      string `yaml:"reindex"`
	ReindexReset bool   `yaml:"reindex_reset"`
	Prune        string `yaml:"prune"`
}

// Off disables a job when used as its schedule.
const Off = "off"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate checks that every enabled schedule parses.
func (c Config) Validate() error {
	var errs []error
	for name, expr := range map[string]string{"reindex": c.Reindex, "prune": c.Prune} {
		if expr == "" || expr == Off {
			continue
		}
		if _, err := parser.Parse(expr); err != nil {
			errs = append(errs, fmt.Errorf("cron: %s schedule %q: %w", name, expr, err))
		}
	}
	return errors.Join(errs...)
}
