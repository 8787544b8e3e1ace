// Package memory provides the project memory service (a chunked full-text
// index per project) and chat history storage, with in-memory
// implementations for tests and small deployments.
package memory

import (
	"context"
	"errors"
	"strings"
)

// User-facing query results that carry no hits.
const (
	MsgUnavailable = "Memory service is not available."
	MsgNoAccess    = "Could not access project memory."
	MsgEmpty       = "No content has been indexed for this project yet."
	MsgNoResults   = "No relevant content found for your query."

	// MsgErrorPrefix starts the result of a query that failed.
	MsgErrorPrefix = "Error searching memory: "
)

// DefaultQueryResults is the number of chunks returned when a query does
// not ask for a specific count.
const DefaultQueryResults = 5

// ErrClosed indicates an index that has been closed.
var ErrClosed = errors.New("memory: index closed")

// Service indexes project files and answers free-text queries over them.
// Index and Remove report success as a bool and never return errors:
// indexing is best effort. Query always returns displayable text.
// Implementations must be safe for concurrent use.
type Service interface {
	// Available reports whether the service can index and query.
	Available() bool

	// Index replaces the chunks for relPath with chunks of content.
	Index(ctx context.Context, projectPath, projectID, relPath, content string) bool

	// Remove drops every chunk for relPath.
	Remove(ctx context.Context, projectPath, projectID, relPath string) bool

	// Query returns up to maxResults ranked chunks with their sources.
	Query(ctx context.Context, projectPath, projectID, text string, maxResults int) string

	// Reset drops the whole project index.
	Reset(ctx context.Context, projectPath, projectID string) bool

	// Stats describes what is indexed for the project.
	Stats(ctx context.Context, projectPath, projectID string) Stats
}

// Stats describes a project index.
type Stats struct {
	Available    bool     `json:"available"`
	TotalChunks  int      `json:"total_chunks"`
	IndexedFiles int      `json:"indexed_files"`
	Sources      []string `json:"sources"`
	DBPath       string   `json:"db_path,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// IsStatus reports whether a Query result is one of the fixed messages
// rather than retrieved content.
func IsStatus(result string) bool {
	switch result {
	case MsgUnavailable, MsgNoAccess, MsgEmpty, MsgNoResults, "":
		return true
	}
	return strings.HasPrefix(result, MsgErrorPrefix)
}

// Service registry names published by memory modules.
const (
	ServiceName        = "memory.service"
	HistoryServiceName = "memory.history"
)
