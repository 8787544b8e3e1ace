// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"sync"

	"github.com/catonblt/novelbuddies/internal/provider"
)

// MockProvider is a configurable test double for provider.Provider.
// Unset funcs panic on call. All methods are safe for concurrent use.
type MockProvider struct {
	CompleteFunc func(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error)
	StreamFunc   func(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error)
	Window       int
	Model        string

	mu            sync.Mutex
	CompleteCalls int
	StreamCalls   int
	Requests      []provider.CompletionRequest
}

// Complete delegates to CompleteFunc and records the request.
func (m *MockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	m.mu.Lock()
	m.CompleteCalls++
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	return m.CompleteFunc(ctx, req)
}

// Stream delegates to StreamFunc and records the request.
func (m *MockProvider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	m.mu.Lock()
	m.StreamCalls++
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	return m.StreamFunc(ctx, req)
}

// ContextWindowSize returns Window, or 200k when unset.
func (m *MockProvider) ContextWindowSize() int {
	if m.Window == 0 {
		return 200_000
	}
	return m.Window
}

// ModelName returns Model, or "mock" when unset.
func (m *MockProvider) ModelName() string {
	if m.Model == "" {
		return "mock"
	}
	return m.Model
}

// LastRequest returns the most recent request seen by the mock.
func (m *MockProvider) LastRequest() provider.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return provider.CompletionRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}

// StreamText returns a StreamFunc that emits each fragment in order and,
// if err is non-nil, a terminal error chunk afterwards.
func StreamText(err error, fragments ...string) func(context.Context, provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	return func(ctx context.Context, _ provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
		ch := make(chan provider.StreamChunk)
		go func() {
			defer close(ch)
			for _, f := range fragments {
				if !provider.Emit(ctx, ch, provider.StreamChunk{Content: f}) {
					return
				}
			}
			if err != nil {
				provider.Emit(ctx, ch, provider.StreamChunk{Err: err})
				return
			}
			provider.Emit(ctx, ch, provider.StreamChunk{FinishReason: provider.FinishReasonStop})
		}()
		return ch, nil
	}
}

// CompleteText returns a CompleteFunc that always answers content.
func CompleteText(content string) func(context.Context, provider.CompletionRequest) (provider.CompletionResponse, error) {
	return func(_ context.Context, _ provider.CompletionRequest) (provider.CompletionResponse, error) {
		return provider.CompletionResponse{Content: content, FinishReason: provider.FinishReasonStop}, nil
	}
}

// Interface guard.
var _ provider.Provider = (*MockProvider)(nil)
