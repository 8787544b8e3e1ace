package security

import (
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_AllowWithinLimit(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{ChatPerMin: 5})
	for i := range 5 {
		if err := rl.Allow(KindChat, "night-harbour"); err != nil {
			t.Fatalf("Allow(%d): %v", i, err)
		}
	}
	if err := rl.Allow(KindChat, "night-harbour"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("6th call = %v, want ErrRateLimited", err)
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{ChatPerMin: 1})
	if err := rl.Allow(KindChat, "a"); err != nil {
		t.Fatal(err)
	}
	if err := rl.Allow(KindChat, "b"); err != nil {
		t.Errorf("project b limited by project a: %v", err)
	}
	if err := rl.Allow(KindOperations, "a"); err != nil {
		t.Errorf("operations limited by chat: %v", err)
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{ChatPerMin: 2})
	rl.now = func() time.Time { return now }

	_ = rl.Allow(KindChat, "p")
	_ = rl.Allow(KindChat, "p")
	if err := rl.Allow(KindChat, "p"); !errors.Is(err, ErrRateLimited) {
		t.Fatal("expected rate limit")
	}

	now = now.Add(61 * time.Second)
	if err := rl.Allow(KindChat, "p"); err != nil {
		t.Fatalf("expected allow after window, got %v", err)
	}
}

func TestRateLimiter_UnknownKindUnlimited(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{})
	for range 1000 {
		if err := rl.Allow("export", "p"); err != nil {
			t.Fatalf("unknown kind limited: %v", err)
		}
	}
}

func TestRateLimiter_Prune(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{})
	rl.now = func() time.Time { return now }

	_ = rl.Allow(KindChat, "p")
	now = now.Add(2 * time.Minute)
	rl.Prune()

	if len(rl.buckets) != 0 {
		t.Errorf("buckets = %d after prune, want 0", len(rl.buckets))
	}
}
