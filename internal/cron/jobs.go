package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/catonblt/novelbuddies/internal/indexer"
	"github.com/catonblt/novelbuddies/internal/memory"
	"github.com/catonblt/novelbuddies/internal/project"
)

// Default schedules.
const (
	DefaultReindexSchedule = "0 */6 * * *"
	DefaultPruneSchedule   = "*/10 * * * *"
)

// ReindexJob rebuilds the memory index of every project under Root. It
// repairs drift from edits made outside the server and from index jobs the
// background queue dropped.
type ReindexJob struct {
	Root    string
	Service memory.Service
	Logger  *slog.Logger
	// Reset clears each project index before walking it, which also drops
	// chunks of files deleted outside the server.
	Reset        bool
	ScheduleExpr string // empty = DefaultReindexSchedule
}

// Compile-time interface check.
var _ Job = (*ReindexJob)(nil)

// Name implements Job.
func (j *ReindexJob) Name() string { return "reindex" }

// Schedule implements Job.
func (j *ReindexJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultReindexSchedule
}

// Run reindexes each project in turn. A failing project does not stop the
// others; their errors are joined.
func (j *ReindexJob) Run(ctx context.Context) error {
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !j.Service.Available() {
		logger.Debug("memory unavailable, skipping reindex")
		return nil
	}

	entries, err := project.Discover(j.Root)
	if err != nil {
		return fmt.Errorf("cron: reindex: %w", err)
	}

	var errs []error
	for _, e := range entries {
		if ctx.Err() != nil {
			return fmt.Errorf("cron: reindex cancelled: %w", ctx.Err())
		}
		res, err := indexer.Reindex(ctx, j.Service, project.NewReader(e.Path), e.Metadata.ID, j.Reset, logger)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if res.Failed > 0 {
			logger.Warn("reindex finished with errors", "project", e.Name, "errors", res.Failed)
		}
	}
	return errors.Join(errs...)
}

// Pruner drops expired rate-limit state. security.RateLimiter implements it.
type Pruner interface {
	Prune()
}

// PruneJob bounds the memory held by the rate limiter.
type PruneJob struct {
	Limiter      Pruner
	ScheduleExpr string // empty = DefaultPruneSchedule
}

// Compile-time interface check.
var _ Job = (*PruneJob)(nil)

// Name implements Job.
func (j *PruneJob) Name() string { return "ratelimit_prune" }

// Schedule implements Job.
func (j *PruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultPruneSchedule
}

// Run implements Job.
func (j *PruneJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: prune cancelled: %w", ctx.Err())
	}
	j.Limiter.Prune()
	return nil
}

// Register adds the maintenance jobs enabled by cfg to s.
func Register(s *Scheduler, cfg Config, root string, svc memory.Service, limiter Pruner, logger *slog.Logger) error {
	if cfg.Reindex != Off {
		err := s.RegisterJob(&ReindexJob{Root: root, Service: svc, Logger: logger, Reset: cfg.ReindexReset, ScheduleExpr: cfg.Reindex})
		if err != nil {
			return err
		}
	}
	if cfg.Prune != Off && limiter != nil {
		if err := s.RegisterJob(&PruneJob{Limiter: limiter, ScheduleExpr: cfg.Prune}); err != nil {
			return err
		}
	}
	return nil
}
