package orchestrator

import (
	ctxengine "github.com/catonblt/novelbuddies/internal/context"
	"github.com/catonblt/novelbuddies/internal/fileops"
)

// EventType identifies the kind of chat event.
type EventType string

// EventType constants for chat events.
const (
	EventStatus         EventType = "status"
	EventContent        EventType = "content"
	EventFileOperations EventType = "file_operations"
	EventDone           EventType = "done"
	EventError          EventType = "error"
)

// Event is one step of a chat exchange as seen by the client.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	Agent   Agent     `json:"agent,omitempty"`
	Content string    `json:"content,omitempty"`

	// Set on EventFileOperations.
	Operations          []fileops.Op         `json:"operations,omitempty"`
	Rejected            []fileops.Rejection  `json:"rejected,omitempty"`
	RequireConfirmation bool                 `json:"require_confirmation,omitempty"`
	Results             *fileops.BatchResult `json:"results,omitempty"`

	// Set on EventDone.
	Context *ctxengine.Report `json:"context,omitempty"`

	Error string `json:"error,omitempty"`
}

// EventSink receives events in order. It is called from the goroutine
// running Handle and must not block for long.
type EventSink func(Event)

func (s EventSink) emit(ev Event) {
	if s != nil {
		s(ev)
	}
}

func (s EventSink) status(agent Agent, msg string) {
	s.emit(Event{Type: EventStatus, Agent: agent, Message: msg})
}
