package memory

import (
	"context"
	"slices"
	"sync"
)

// InMemoryHistoryStore is a thread-safe, in-memory implementation of HistoryStore.
type InMemoryHistoryStore struct {
	mu       sync.RWMutex
	projects map[string][]Message
}

// NewInMemoryHistoryStore creates a new empty history store.
func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{
		projects: make(map[string][]Message),
	}
}

// Compile-time interface check.
var _ HistoryStore = (*InMemoryHistoryStore)(nil)

// Append adds a message to the project's history.
func (s *InMemoryHistoryStore) Append(_ context.Context, msg Message) (Message, error) {
	msg = stamp(msg)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[msg.ProjectID] = append(s.projects[msg.ProjectID], msg)
	return msg, nil
}

// Recent returns the n most recent messages for a project.
func (s *InMemoryHistoryStore) Recent(_ context.Context, projectID string, n int) ([]Message, error) {
	if n <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.projects[projectID]
	if n > len(msgs) {
		n = len(msgs)
	}
	return slices.Clone(msgs[len(msgs)-n:]), nil
}

// All returns all messages for a project.
func (s *InMemoryHistoryStore) All(_ context.Context, projectID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.projects[projectID]), nil
}

// Get returns a message by ID.
func (s *InMemoryHistoryStore) Get(_ context.Context, id string) (Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, msgs := range s.projects {
		for _, m := range msgs {
			if m.ID == id {
				return m, nil
			}
		}
	}
	return Message{}, ErrMessageNotFound
}

// Purge removes all history for a project.
func (s *InMemoryHistoryStore) Purge(_ context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, projectID)
	return nil
}

// Len returns the number of messages stored for a project.
func (s *InMemoryHistoryStore) Len(_ context.Context, projectID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects[projectID]), nil
}
