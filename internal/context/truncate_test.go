package ctxengine_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	ctxengine "github.com/catonblt/novelbuddies/internal/context"
)

func TestTruncate(t *testing.T) {
	t.Parallel()

	est := ctxengine.NewCharEstimator(0)
	long := strings.Repeat("The rain fell on the harbour. ", 400) // ~12000 chars

	tests := []struct {
		name      string
		content   string
		maxTokens int
		wantSame  bool
		wantEmpty bool
	}{
		{name: "fits_unchanged", content: "short text", maxTokens: 100, wantSame: true},
		{name: "ceiling_below_100", content: long, maxTokens: 99, wantEmpty: true},
		{name: "truncated", content: long, maxTokens: 1000},
		{name: "minimum_ceiling", content: long, maxTokens: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ctxengine.Truncate(tt.content, tt.maxTokens, est)
			switch {
			case tt.wantSame:
				if got != tt.content {
					t.Errorf("Truncate changed fitting content: %q", got)
				}
			case tt.wantEmpty:
				if got != "" {
					t.Errorf("Truncate = %d bytes, want empty", len(got))
				}
			default:
				if n := est.Estimate(got); n > tt.maxTokens {
					t.Errorf("Estimate(result) = %d, want <= %d", n, tt.maxTokens)
				}
				if !strings.Contains(got, ctxengine.TruncationMarker) {
					t.Error("result is missing the truncation marker")
				}
				if !strings.HasPrefix(got, "The rain fell") {
					t.Errorf("result does not keep the head: %q", got[:40])
				}
			}
		})
	}
}

func TestTruncate_Idempotent(t *testing.T) {
	t.Parallel()

	est := ctxengine.NewCharEstimator(0)
	content := strings.Repeat("Marguerite waited by the window. ", 300)

	once := ctxengine.Truncate(content, 500, est)
	twice := ctxengine.Truncate(once, 500, est)
	if once != twice {
		t.Error("Truncate(Truncate(x)) != Truncate(x)")
	}
}

func TestTruncate_RespectsRuneBoundaries(t *testing.T) {
	t.Parallel()

	est := ctxengine.NewCharEstimator(0)
	content := strings.Repeat("été à Noël — ", 600)

	got := ctxengine.Truncate(content, 300, est)
	if got == "" {
		t.Fatal("Truncate returned empty")
	}
	if !utf8.ValidString(got) {
		t.Error("Truncate split a multi-byte rune")
	}
}

func TestShrink(t *testing.T) {
	t.Parallel()

	est := ctxengine.NewCharEstimator(0)
	long := strings.Repeat("The rain fell on the harbour. ", 400)

	tests := []struct {
		name       string
		maxTokens  int
		wantMarker bool
		wantEmpty  bool
	}{
		{name: "above_ceiling_keeps_tail", maxTokens: 1000, wantMarker: true},
		{name: "below_ceiling_prefix", maxTokens: 40},
		{name: "one_token", maxTokens: 1},
		{name: "zero", maxTokens: 0, wantEmpty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ctxengine.Shrink(long, tt.maxTokens, est)
			if tt.wantEmpty {
				if got != "" {
					t.Errorf("Shrink = %q, want empty", got)
				}
				return
			}
			if got == "" {
				t.Fatal("Shrink dropped everything")
			}
			if n := est.Estimate(got); n > tt.maxTokens {
				t.Errorf("Estimate(result) = %d, want <= %d", n, tt.maxTokens)
			}
			if tt.wantMarker != strings.Contains(got, ctxengine.TruncationMarker) {
				t.Errorf("marker present = %v, want %v", !tt.wantMarker, tt.wantMarker)
			}
			if !tt.wantMarker && !strings.HasPrefix(long, got) {
				t.Errorf("result is not a prefix: %q", got)
			}
		})
	}
}
