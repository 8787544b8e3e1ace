package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a request exceeds the rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Rate-limited request kinds.
const (
	KindChat       = "chat"
	KindOperations = "operations"
	KindReindex    = "reindex"
)

// RateLimitConfig holds per-project limits. Zero means the default.
type RateLimitConfig struct {
	ChatPerMin       int `yaml:"chat_per_min"`
	OperationsPerMin int `yaml:"operations_per_min"`
	ReindexPerHour   int `yaml:"reindex_per_hour"`
}

func (cfg RateLimitConfig) withDefaults() RateLimitConfig {
	if cfg.ChatPerMin <= 0 {
		cfg.ChatPerMin = 30
	}
	if cfg.OperationsPerMin <= 0 {
		cfg.OperationsPerMin = 120
	}
	if cfg.ReindexPerHour <= 0 {
		cfg.ReindexPerHour = 12
	}
	return cfg
}

// RateLimiter implements sliding-window limits keyed by request kind and
// project, so one busy project cannot starve the others.
type RateLimiter struct {
	mu      sync.Mutex
	limits  map[string]limit
	buckets map[bucketKey]*bucket
	now     func() time.Time
}

type limit struct {
	window time.Duration
	max    int
}

type bucketKey struct{ kind, key string }

type bucket struct {
	events []time.Time
}

// NewRateLimiter creates a rate limiter with the given config.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	cfg = cfg.withDefaults()
	return &RateLimiter{
		limits: map[string]limit{
			KindChat:       {window: time.Minute, max: cfg.ChatPerMin},
			KindOperations: {window: time.Minute, max: cfg.OperationsPerMin},
			KindReindex:    {window: time.Hour, max: cfg.ReindexPerHour},
		},
		buckets: make(map[bucketKey]*bucket),
		now:     time.Now,
	}
}

// Allow records one event of kind for key, or returns ErrRateLimited when
// the window is full. Unknown kinds are unlimited.
func (rl *RateLimiter) Allow(kind, key string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lim, ok := rl.limits[kind]
	if !ok {
		return nil
	}
	k := bucketKey{kind: kind, key: key}
	b := rl.buckets[k]
	if b == nil {
		b = &bucket{}
		rl.buckets[k] = b
	}

	now := rl.now()
	b.evict(now.Add(-lim.window))
	if len(b.events) >= lim.max {
		return ErrRateLimited
	}
	b.events = append(b.events, now)
	return nil
}

// Prune drops buckets with no events inside their window.
func (rl *RateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for k, b := range rl.buckets {
		b.evict(now.Add(-rl.limits[k.kind].window))
		if len(b.events) == 0 {
			delete(rl.buckets, k)
		}
	}
}

// evict removes events before cutoff. Events are chronological.
func (b *bucket) evict(cutoff time.Time) {
	i := 0
	for i < len(b.events) && b.events[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		b.events = b.events[i:]
	}
}
