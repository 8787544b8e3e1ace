package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/catonblt/novelbuddies/internal/orchestrator"
	"github.com/catonblt/novelbuddies/internal/provider"
	"github.com/catonblt/novelbuddies/internal/security"
)

// chatRequest is the body of POST /api/projects/{project}/chat.
type chatRequest struct {
	Message    string `json:"message"`
	ActiveFile string `json:"active_file"`
	Autonomy   *int   `json:"autonomy"`
}

// handleChat streams one chat turn as server-sent events, one JSON
// orchestrator.Event per "data:" line. Errors raised before the first
// event are answered as plain JSON errors instead.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	entry := projectFrom(r)
	var req chatRequest
	if !g.decode(w, r, &req) {
		return
	}
	if req.Autonomy != nil && (*req.Autonomy < 0 || *req.Autonomy > 100) {
		writeError(w, http.StatusBadRequest, "autonomy must be between 0 and 100")
		return
	}
	if g.orchestrator == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not available")
		return
	}
	if !g.allow(w, security.KindChat, entry) {
		return
	}

	stream := newEventStream(w, g.config.WriteTimeout)
	resp, err := g.orchestrator.Handle(r.Context(), orchestrator.Request{
		ProjectPath: entry.Path,
		Project:     entry.Metadata,
		Message:     req.Message,
		ActiveFile:  req.ActiveFile,
		Autonomy:    req.Autonomy,
	}, stream.send)

	g.audit.Log(security.AuditEvent{
		Type:    security.EventChat,
		Project: entry.Metadata.ID,
		Success: err == nil,
		Detail:  string(resp.ContentType),
		Metadata: map[string]string{
			"operations": fmt.Sprint(len(resp.Operations)),
		},
	})

	if err == nil {
		return
	}
	if !stream.started() {
		writeError(w, chatStatus(err), err.Error())
		return
	}
	if stream.err != nil {
		g.logger.Debug("chat stream closed by client", "project", entry.Metadata.ID, "error", stream.err)
	}
}

// chatStatus maps a Handle error returned before any event to a status code.
func chatStatus(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrEmptyMessage), errors.Is(err, orchestrator.ErrNoProject):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrNoProvider):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// eventStream writes events in the text/event-stream format. Headers are
// committed on the first event, so a request rejected up front can still
// get an ordinary error response.
type eventStream struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	timeout time.Duration
	wrote   bool
	err     error
}

func newEventStream(w http.ResponseWriter, timeout time.Duration) *eventStream {
	return &eventStream{w: w, rc: http.NewResponseController(w), timeout: timeout}
}

func (s *eventStream) started() bool { return s.wrote }

// send writes one event. After a write error the remaining events are
// dropped; the request context is cancelled as the client goes away.
func (s *eventStream) send(ev orchestrator.Event) {
	if s.err != nil {
		return
	}
	if !s.wrote {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.wrote = true
	}

	data, err := json.Marshal(ev)
	if err != nil {
		s.err = err
		return
	}
	if s.timeout > 0 {
		// Not every writer supports deadlines; the server default applies then.
		_ = s.rc.SetWriteDeadline(time.Now().Add(s.timeout))
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		s.err = err
		return
	}
	if err := s.rc.Flush(); err != nil {
		s.err = err
	}
}
