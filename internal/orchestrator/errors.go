package orchestrator

import "errors"

// Sentinel errors for the chat flow.
var (
	// ErrEmptyMessage indicates a chat request without text.
	ErrEmptyMessage = errors.New("orchestrator: empty message")

	// ErrNoProject indicates a request that names no project directory.
	ErrNoProject = errors.New("orchestrator: no project path")
)
