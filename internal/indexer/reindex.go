package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/catonblt/novelbuddies/internal/memory"
	"github.com/catonblt/novelbuddies/internal/project"
)

// ErrUnavailable indicates a reindex requested without a memory service.
var ErrUnavailable = errors.New("indexer: memory service is not available")

// Result summarizes a full reindex.
type Result struct {
	ProjectID string        `json:"project_id"`
	Indexed   int           `json:"indexed"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration_ns"`
}

// Reindex walks the project's text files and indexes each one, in the
// calling goroutine. With reset the project index is cleared first, which
// also drops chunks for files deleted outside the server.
func Reindex(ctx context.Context, svc memory.Service, reader *project.Reader, projectID string, reset bool, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res := Result{ProjectID: projectID}
	if svc == nil || !svc.Available() {
		return res, ErrUnavailable
	}

	start := time.Now()
	logger.Info("starting full reindex", "project", projectID, "path", reader.Root)

	if reset && !svc.Reset(ctx, reader.Root, projectID) {
		logger.Warn("resetting project index failed, reindexing over existing chunks", "project", projectID)
	}

	err := reader.Walk(project.IndexExtensions, func(rel string, _ fs.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := reader.ReadFile(rel)
		if err != nil {
			logger.Debug("skipping unreadable file", "path", rel, "error", err)
			res.Failed++
			return nil
		}
		if svc.Index(ctx, reader.Root, projectID, rel, content) {
			res.Indexed++
		} else {
			res.Failed++
		}
		return nil
	})
	res.Duration = time.Since(start)
	if err != nil {
		return res, fmt.Errorf("indexer: reindex %s: %w", projectID, err)
	}

	logger.Info("reindex complete",
		"project", projectID,
		"indexed", res.Indexed,
		"errors", res.Failed,
		"duration", res.Duration,
	)
	return res, nil
}
