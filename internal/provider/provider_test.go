package provider_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/catonblt/novelbuddies/internal/provider"
	"github.com/catonblt/novelbuddies/internal/provider/providertest"
)

func TestCollect_AccumulatesFragments(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{StreamFunc: providertest.StreamText(nil, "Elena ", "is ", "34.")}

	ch, err := mock.Stream(context.Background(), provider.CompletionRequest{})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var seen []string
	res, err := provider.Collect(context.Background(), ch, func(s string) { seen = append(seen, s) })
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if res.Content != "Elena is 34." {
		t.Errorf("content = %q", res.Content)
	}
	if len(seen) != 3 {
		t.Errorf("onChunk called %d times, want 3", len(seen))
	}
	if res.FinishReason != provider.FinishReasonStop {
		t.Errorf("finish reason = %q, want stop", res.FinishReason)
	}
}

func TestCollect_PreservesPartialOnError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	mock := &providertest.MockProvider{StreamFunc: providertest.StreamText(boom, "half ", "a reply")}

	ch, _ := mock.Stream(context.Background(), provider.CompletionRequest{})
	res, err := provider.Collect(context.Background(), ch, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if res.Content != "half a reply" {
		t.Errorf("partial content = %q, want %q", res.Content, "half a reply")
	}
}

func TestCollect_CancelDoesNotBlockProducer(t *testing.T) {
	t.Parallel()

	fragments := make([]string, 100)
	for i := range fragments {
		fragments[i] = fmt.Sprintf("f%d ", i)
	}
	mock := &providertest.MockProvider{StreamFunc: providertest.StreamText(nil, fragments...)}

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := mock.Stream(ctx, provider.CompletionRequest{})

	res, err := provider.Collect(ctx, ch, func(s string) {
		if strings.HasPrefix(s, "f2 ") {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if !strings.HasPrefix(res.Content, "f0 f1 f2 ") {
		t.Errorf("partial content = %q", res.Content)
	}

	// The producer must observe cancellation and close the channel.
	for range ch {
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("wrap: %w", provider.ErrRateLimit), true},
		{provider.ErrProviderDown, true},
		{provider.ErrContextLength, false},
		{errors.New("other"), false},
	}
	for _, tt := range tests {
		if got := provider.IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
