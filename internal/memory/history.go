package memory

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/catonblt/novelbuddies/internal/provider"
)

// ErrMessageNotFound indicates the requested message does not exist.
var ErrMessageNotFound = errors.New("memory: message not found")

// Message is one stored chat message.
type Message struct {
	ID        string               `json:"id"`
	ProjectID string               `json:"project_id"`
	Role      provider.MessageRole `json:"role"`
	Content   string               `json:"content"`
	Agent     string               `json:"agent_type,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// LLM returns the message in provider form.
func (m Message) LLM() provider.LLMMessage {
	return provider.LLMMessage{Role: m.Role, Content: m.Content}
}

// NewMessageID returns a new, lexically time-ordered message ID.
func NewMessageID() string {
	return ulid.Make().String()
}

// HistoryStore keeps chat messages per project.
// Implementations must be safe for concurrent use.
type HistoryStore interface {
	// Append stores msg, assigning an ID and timestamp when unset, and
	// returns the stored message.
	Append(ctx context.Context, msg Message) (Message, error)

	// Recent returns the n most recent messages for a project in
	// chronological order.
	Recent(ctx context.Context, projectID string, n int) ([]Message, error)

	// All returns every message for a project in chronological order.
	All(ctx context.Context, projectID string) ([]Message, error)

	// Get returns one message by ID.
	Get(ctx context.Context, id string) (Message, error)

	// Purge removes a project's history.
	Purge(ctx context.Context, projectID string) error

	// Len returns the number of messages stored for a project.
	Len(ctx context.Context, projectID string) (int, error)
}

// LLMMessages converts stored messages for a completion request.
func LLMMessages(msgs []Message) []provider.LLMMessage {
	out := make([]provider.LLMMessage, len(msgs))
	for i, m := range msgs {
		out[i] = m.LLM()
	}
	return out
}

func stamp(msg Message) Message {
	if msg.ID == "" {
		msg.ID = NewMessageID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	return msg
}
