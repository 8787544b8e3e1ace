package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
)

// InMemoryIndex is a thread-safe, in-memory Index. Search ranks chunks by
// how many distinct query terms they contain.
type InMemoryIndex struct {
	mu     sync.RWMutex
	chunks map[string][]string // source → chunks
	closed bool
}

// NewInMemoryIndex creates an empty index.
func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{chunks: make(map[string][]string)}
}

// InMemoryOpener returns an Opener that creates a fresh InMemoryIndex per
// project.
func InMemoryOpener() Opener {
	return func(context.Context, string) (Index, error) {
		return NewInMemoryIndex(), nil
	}
}

// Compile-time interface check.
var _ Index = (*InMemoryIndex)(nil)

// Replace implements Index.
func (x *InMemoryIndex) Replace(_ context.Context, source string, chunks []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return ErrClosed
	}
	if len(chunks) == 0 {
		delete(x.chunks, source)
		return nil
	}
	x.chunks[source] = slices.Clone(chunks)
	return nil
}

// Delete implements Index.
func (x *InMemoryIndex) Delete(_ context.Context, source string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return ErrClosed
	}
	delete(x.chunks, source)
	return nil
}

// Search implements Index.
func (x *InMemoryIndex) Search(_ context.Context, query string, limit int) ([]Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return nil, ErrClosed
	}
	terms := uniqueTerms(query)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	type scored struct {
		hit   Hit
		score int
	}
	var results []scored
	for source, chunks := range x.chunks {
		for i, text := range chunks {
			lower := strings.ToLower(text)
			score := 0
			for _, t := range terms {
				if strings.Contains(lower, t) {
					score++
				}
			}
			if score > 0 {
				results = append(results, scored{
					hit:   Hit{Source: source, ChunkIndex: i, TotalChunks: len(chunks), Text: text},
					score: score,
				})
			}
		}
	}

	slices.SortFunc(results, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.hit.Source, b.hit.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.hit.ChunkIndex, b.hit.ChunkIndex)
	})

	hits := make([]Hit, 0, min(limit, len(results)))
	for _, r := range results[:min(limit, len(results))] {
		hits = append(hits, r.hit)
	}
	return hits, nil
}

// Count implements Index.
func (x *InMemoryIndex) Count(context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return 0, ErrClosed
	}
	n := 0
	for _, chunks := range x.chunks {
		n += len(chunks)
	}
	return n, nil
}

// Sources implements Index.
func (x *InMemoryIndex) Sources(context.Context) ([]string, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return nil, ErrClosed
	}
	out := make([]string, 0, len(x.chunks))
	for source := range x.chunks {
		out = append(out, source)
	}
	slices.Sort(out)
	return out, nil
}

// Reset implements Index.
func (x *InMemoryIndex) Reset(context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return ErrClosed
	}
	clear(x.chunks)
	return nil
}

// Location implements Index.
func (x *InMemoryIndex) Location() string { return ":memory:" }

// Close implements Index.
func (x *InMemoryIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (x *InMemoryIndex) Closed() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.closed
}

func uniqueTerms(query string) []string {
	var terms []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		f = strings.Trim(f, `.,;:!?"'()[]{}`)
		if f != "" && !slices.Contains(terms, f) {
			terms = append(terms, f)
		}
	}
	return terms
}
