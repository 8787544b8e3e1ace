// Package provider defines the generation capability consumed by the
// orchestrator and the review pipeline.
package provider

import "context"

// Provider is the interface for communicating with an LLM.
// Concrete implementations live under modules/provider and register
// themselves as core modules.
type Provider interface {
	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// Stream sends a request and returns a channel of chunks. Connection
	// errors are returned directly. A failure after the first chunk is
	// delivered as a single terminal StreamChunk with Err set, after which
	// the channel is closed. Cancelling ctx stops the producer and closes
	// the channel without blocking.
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// ContextWindowSize returns the maximum context window in tokens.
	ContextWindowSize() int

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}

// ServiceName is the AppContext service under which the active Provider
// is published.
const ServiceName = "provider"

// HealthChecker is implemented by providers that can check their backend.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
