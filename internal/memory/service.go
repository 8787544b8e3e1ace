package memory

import (
	"context"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/catonblt/novelbuddies/internal/project"
)

// ChunkOptions tunes how files are split before indexing.
type ChunkOptions struct {
	Words      int
	Overlap    int
	Extensions []string
}

func (o *ChunkOptions) defaults() {
	if o.Words <= 0 {
		o.Words = project.DefaultChunkWords
	}
	if o.Overlap < 0 || o.Overlap >= o.Words {
		o.Overlap = project.DefaultChunkOverlap
	}
	if len(o.Extensions) == 0 {
		o.Extensions = project.IndexExtensions
	}
}

// ChunkService is the Service backed by a Registry of project indexes.
type ChunkService struct {
	registry *Registry
	opts     ChunkOptions
	logger   *slog.Logger
}

// Compile-time interface check.
var _ Service = (*ChunkService)(nil)

// NewChunkService creates a ChunkService. A nil logger uses slog.Default().
func NewChunkService(registry *Registry, opts ChunkOptions, logger *slog.Logger) *ChunkService {
	opts.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunkService{registry: registry, opts: opts, logger: logger.With("component", "memory")}
}

// Available implements Service.
func (s *ChunkService) Available() bool { return s.registry != nil }

// Index implements Service. Files with unindexed extensions are skipped and
// reported as success; blank content clears the file's chunks.
func (s *ChunkService) Index(ctx context.Context, projectPath, projectID, relPath, content string) bool {
	if !slices.Contains(s.opts.Extensions, strings.ToLower(path.Ext(relPath))) {
		s.logger.Debug("skipping non-text file", "path", relPath)
		return true
	}
	idx, release, err := s.registry.Acquire(ctx, projectPath)
	if err != nil {
		s.logger.Error("opening project index failed", "project", projectID, "error", err)
		return false
	}
	defer release()
	chunks := project.Chunk(content, s.opts.Words, s.opts.Overlap)
	if err := idx.Replace(ctx, relPath, chunks); err != nil {
		s.logger.Error("indexing file failed", "project", projectID, "path", relPath, "error", err)
		return false
	}
	s.logger.Info("indexed file", "project", projectID, "path", relPath, "chunks", len(chunks))
	return true
}

// Remove implements Service.
func (s *ChunkService) Remove(ctx context.Context, projectPath, projectID, relPath string) bool {
	idx, release, err := s.registry.Acquire(ctx, projectPath)
	if err != nil {
		s.logger.Error("opening project index failed", "project", projectID, "error", err)
		return false
	}
	defer release()
	if err := idx.Delete(ctx, relPath); err != nil {
		s.logger.Error("removing file from index failed", "project", projectID, "path", relPath, "error", err)
		return false
	}
	return true
}

// Query implements Service.
func (s *ChunkService) Query(ctx context.Context, projectPath, projectID, text string, maxResults int) string {
	if maxResults <= 0 {
		maxResults = DefaultQueryResults
	}
	idx, release, err := s.registry.Acquire(ctx, projectPath)
	if err != nil {
		s.logger.Error("opening project index failed", "project", projectID, "error", err)
		return MsgNoAccess
	}
	defer release()

	count, err := idx.Count(ctx)
	if err != nil {
		s.logger.Error("counting chunks failed", "project", projectID, "error", err)
		return MsgErrorPrefix + err.Error()
	}
	if count == 0 {
		return MsgEmpty
	}

	hits, err := idx.Search(ctx, text, min(maxResults, count))
	if err != nil {
		s.logger.Error("searching project index failed", "project", projectID, "error", err)
		return MsgErrorPrefix + err.Error()
	}
	if len(hits) == 0 {
		return MsgNoResults
	}
	return FormatHits(hits)
}

// Reset implements Service.
func (s *ChunkService) Reset(ctx context.Context, projectPath, projectID string) bool {
	idx, release, err := s.registry.Acquire(ctx, projectPath)
	if err != nil {
		s.logger.Error("opening project index failed", "project", projectID, "error", err)
		return false
	}
	defer release()
	if err := idx.Reset(ctx); err != nil {
		s.logger.Error("resetting project index failed", "project", projectID, "error", err)
		return false
	}
	s.logger.Info("reset project index", "project", projectID)
	return true
}

// Stats implements Service.
func (s *ChunkService) Stats(ctx context.Context, projectPath, projectID string) Stats {
	idx, release, err := s.registry.Acquire(ctx, projectPath)
	if err != nil {
		return Stats{Error: err.Error()}
	}
	defer release()
	count, err := idx.Count(ctx)
	if err != nil {
		return Stats{Error: err.Error()}
	}
	sources, err := idx.Sources(ctx)
	if err != nil {
		return Stats{Error: err.Error()}
	}
	if sources == nil {
		sources = []string{}
	}
	return Stats{
		Available:    true,
		TotalChunks:  count,
		IndexedFiles: len(sources),
		Sources:      sources,
		DBPath:       idx.Location(),
	}
}
