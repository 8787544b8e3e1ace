package memory

import (
	"context"
	"fmt"
	"strings"
)

// Hit is one retrieved chunk.
type Hit struct {
	Source      string
	ChunkIndex  int
	TotalChunks int
	Text        string
}

// Index is the chunk store for one project. Implementations must be safe
// for concurrent use.
type Index interface {
	// Replace drops the existing chunks for source and stores chunks.
	Replace(ctx context.Context, source string, chunks []string) error

	// Delete drops every chunk for source.
	Delete(ctx context.Context, source string) error

	// Search returns up to limit chunks ranked by relevance to query.
	Search(ctx context.Context, query string, limit int) ([]Hit, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Sources returns the distinct indexed paths, sorted.
	Sources(ctx context.Context) ([]string, error)

	// Reset drops every chunk.
	Reset(ctx context.Context) error

	// Location describes where the index lives, for diagnostics.
	Location() string

	Close() error
}

// Opener opens the index for a project directory.
type Opener func(ctx context.Context, projectPath string) (Index, error)

// FormatHits renders hits with their source attribution.
func FormatHits(hits []Hit) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		total := max(h.TotalChunks, 1)
		parts[i] = fmt.Sprintf("**[Source: %s (chunk %d/%d)]**\n%s", h.Source, h.ChunkIndex+1, total, h.Text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}
