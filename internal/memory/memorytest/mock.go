// Package memorytest provides test helpers for the memory package.
package memorytest

import (
	"context"
	"sync"

	"github.com/catonblt/novelbuddies/internal/memory"
)

// IndexCall records one Index or Remove call.
type IndexCall struct {
	ProjectPath string
	ProjectID   string
	Path        string
	Content     string
	Remove      bool
}

// MockService is a recording memory.Service. Index and Remove succeed
// unless Fail is set; Query returns QueryResult, or memory.MsgEmpty when
// it is empty.
type MockService struct {
	Fail        bool
	QueryResult string

	mu      sync.Mutex
	calls   []IndexCall
	queries []string
	signal  chan struct{}
}

// Compile-time interface check.
var _ memory.Service = (*MockService)(nil)

// Available implements memory.Service.
func (m *MockService) Available() bool { return true }

// Index implements memory.Service.
func (m *MockService) Index(_ context.Context, projectPath, projectID, relPath, content string) bool {
	m.record(IndexCall{ProjectPath: projectPath, ProjectID: projectID, Path: relPath, Content: content})
	return !m.Fail
}

// Remove implements memory.Service.
func (m *MockService) Remove(_ context.Context, projectPath, projectID, relPath string) bool {
	m.record(IndexCall{ProjectPath: projectPath, ProjectID: projectID, Path: relPath, Remove: true})
	return !m.Fail
}

// Query implements memory.Service.
func (m *MockService) Query(_ context.Context, _, _, text string, _ int) string {
	m.mu.Lock()
	m.queries = append(m.queries, text)
	m.mu.Unlock()
	if m.QueryResult == "" {
		return memory.MsgEmpty
	}
	return m.QueryResult
}

// Reset implements memory.Service.
func (m *MockService) Reset(context.Context, string, string) bool { return !m.Fail }

// Stats implements memory.Service.
func (m *MockService) Stats(context.Context, string, string) memory.Stats {
	return memory.Stats{Available: true, Sources: []string{}}
}

// Calls returns the recorded Index and Remove calls in order.
func (m *MockService) Calls() []IndexCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]IndexCall(nil), m.calls...)
}

// Queries returns the recorded query texts.
func (m *MockService) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// Notify returns a channel that receives a value after every Index or
// Remove call. Tests use it to wait for background indexing.
func (m *MockService) Notify() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.signal == nil {
		m.signal = make(chan struct{}, 64)
	}
	return m.signal
}

func (m *MockService) record(c IndexCall) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	sig := m.signal
	m.mu.Unlock()
	if sig != nil {
		select {
		case sig <- struct{}{}:
		default:
		}
	}
}
