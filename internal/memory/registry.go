package memory

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultRegistrySize bounds the number of open project indexes.
const DefaultRegistrySize = 32

// Registry keeps one open Index per project path. Lookups for a project
// that is not open yet share a single open call. When the cache is full
// the least recently used index is evicted; it is closed once the last
// caller holding it releases it.
type Registry struct {
	open   Opener
	cache  *lru.Cache[string, *entry]
	group  singleflight.Group
	logger *slog.Logger
}

// entry counts the callers using an index so eviction never closes it
// under them.
type entry struct {
	key string
	idx Index

	mu      sync.Mutex
	refs    int
	evicted bool
}

func (e *entry) acquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return false
	}
	e.refs++
	return true
}

// release drops one reference and reports whether the index should close.
func (e *entry) release() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refs--
	return e.evicted && e.refs == 0
}

// evict marks e evicted and reports whether the index should close now.
func (e *entry) evict() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evicted = true
	return e.refs == 0
}

// NewRegistry creates a Registry holding at most size indexes. A size of
// zero or less uses DefaultRegistrySize. A nil logger uses slog.Default().
func NewRegistry(open Opener, size int, logger *slog.Logger) (*Registry, error) {
	if size <= 0 {
		size = DefaultRegistrySize
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{open: open, logger: logger}
	cache, err := lru.NewWithEvict(size, func(_ string, e *entry) {
		if e.evict() {
			r.closeEntry(e)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("memory: create registry: %w", err)
	}
	r.cache = cache
	return r, nil
}

func (r *Registry) closeEntry(e *entry) {
	if err := e.idx.Close(); err != nil {
		r.logger.Warn("closing project index failed", "project", e.key, "error", err)
		return
	}
	r.logger.Debug("closed project index", "project", e.key)
}

// Acquire returns the index for projectPath, opening it if needed, and a
// release func the caller must call when done with it. The index stays
// open until released even if it is evicted meanwhile.
func (r *Registry) Acquire(ctx context.Context, projectPath string) (Index, func(), error) {
	key := registryKey(projectPath)
	for {
		e, ok := r.cache.Get(key)
		if !ok {
			v, err, _ := r.group.Do(key, func() (any, error) {
				if cached, ok := r.cache.Get(key); ok {
					return cached, nil
				}
				idx, err := r.open(ctx, key)
				if err != nil {
					return nil, err
				}
				fresh := &entry{key: key, idx: idx}
				r.cache.Add(key, fresh)
				return fresh, nil
			})
			if err != nil {
				return nil, nil, fmt.Errorf("memory: open index for %s: %w", key, err)
			}
			e = v.(*entry)
		}
		// An entry evicted between lookup and acquire is closing; look
		// again.
		if e.acquire() {
			var once sync.Once
			return e.idx, func() {
				once.Do(func() {
					if e.release() {
						r.closeEntry(e)
					}
				})
			}, nil
		}
	}
}

// Len returns the number of open indexes.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Close evicts every index. Indexes still held close on their last release.
func (r *Registry) Close() error {
	r.cache.Purge()
	return nil
}

func registryKey(projectPath string) string {
	if abs, err := filepath.Abs(projectPath); err == nil {
		return abs
	}
	return filepath.Clean(projectPath)
}
