package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/catonblt/novelbuddies/internal/fileops"
)

// WebSocket message types.
const (
	MessageFileChange    = "file_change"
	MessageBatchComplete = "file_operations_complete"
	MessagePing          = "ping"
	MessagePong          = "pong"
)

const (
	defaultPingInterval   = 30 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultClientQueueLen = 32
)

// Message is one server-to-client WebSocket message.
type Message struct {
	Type      string               `json:"type"`
	Path      string               `json:"path,omitempty"`
	Operation fileops.Kind         `json:"operation,omitempty"`
	Agent     string               `json:"agent_type,omitempty"`
	Results   *fileops.BatchResult `json:"results,omitempty"`
	Timestamp time.Time            `json:"timestamp,omitzero"`
}

// Hub fans file changes out to the WebSocket clients watching a project.
// It implements fileops.Observer; broadcasts never block the dispatcher,
// and a client whose queue is full is disconnected.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	closed  bool

	origins      []string
	pingInterval time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

type client struct {
	conn      *websocket.Conn
	projectID string
	send      chan []byte
	cancel    context.CancelFunc
}

// NewHub creates a Hub accepting handshakes from the given origin host
// patterns. Same-origin and non-browser clients are always accepted.
func NewHub(origins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:      make(map[string]map[*client]struct{}),
		origins:      origins,
		pingInterval: defaultPingInterval,
		logger:       logger.With("component", "ws"),
		now:          time.Now,
	}
}

// ServeProject upgrades the request and serves the connection until the
// client leaves or the hub closes. It blocks for the connection's lifetime.
func (h *Hub) ServeProject(w http.ResponseWriter, r *http.Request, projectID string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.logger.Warn("websocket accept failed", "project", projectID, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &client{
		conn:      conn,
		projectID: projectID,
		send:      make(chan []byte, defaultClientQueueLen),
		cancel:    cancel,
	}
	if !h.add(c) {
		cancel()
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	h.logger.Debug("websocket client connected", "project", projectID)

	defer func() {
		h.remove(c)
		cancel()
		_ = conn.Close(websocket.StatusNormalClosure, "")
		h.logger.Debug("websocket client disconnected", "project", projectID)
	}()

	go func() {
		h.writeLoop(ctx, c)
		cancel()
	}()
	h.readLoop(ctx, c)
}

// readLoop answers pings. Both a bare "ping" text and {"type":"ping"} are
// understood; anything else is ignored.
func (h *Hub) readLoop(ctx context.Context, c *client) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		if reply, ok := pongFor(data); ok {
			h.enqueue(c, reply)
		}
	}
}

func pongFor(data []byte) ([]byte, bool) {
	trimmed := bytes.TrimSpace(data)
	if string(trimmed) == MessagePing {
		return []byte(MessagePong), true
	}
	var msg struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(trimmed, &msg) == nil && msg.Type == MessagePing {
		reply, _ := json.Marshal(Message{Type: MessagePong})
		return reply, true
	}
	return nil, false
}

// writeLoop owns all writes to the connection. After pingInterval without
// traffic it sends a ping message to keep intermediaries from timing out.
func (h *Hub) writeLoop(ctx context.Context, c *client) {
	idle := time.NewTimer(h.pingInterval)
	defer idle.Stop()
	ping, _ := json.Marshal(Message{Type: MessagePing})

	for {
		var data []byte
		select {
		case <-ctx.Done():
			return
		case data = <-c.send:
		case <-idle.C:
			data = ping
		}

		wctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
		err := c.conn.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			h.logger.Debug("websocket write failed", "project", c.projectID, "error", err)
			return
		}
		idle.Reset(h.pingInterval)
	}
}

// enqueue queues data for c, disconnecting it when its queue is full.
func (h *Hub) enqueue(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.logger.Warn("websocket client too slow, disconnecting", "project", c.projectID)
		c.cancel()
	}
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set := h.clients[c.projectID]
	if set == nil {
		set = make(map[*client]struct{})
		h.clients[c.projectID] = set
	}
	set[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.projectID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.projectID)
	}
}

// Broadcast sends msg to every client of projectID.
func (h *Hub) Broadcast(projectID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encoding websocket message failed", "type", msg.Type, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[projectID] {
		h.enqueue(c, data)
	}
}

// Clients returns the number of connections watching projectID.
func (h *Hub) Clients(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[projectID])
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// FileChanged implements fileops.Observer.
func (h *Hub) FileChanged(_ context.Context, change fileops.Change) {
	h.Broadcast(change.ProjectID, Message{
		Type:      MessageFileChange,
		Path:      change.Path,
		Operation: change.Kind,
		Agent:     change.Agent,
		Timestamp: h.now(),
	})
}

// BatchApplied implements fileops.Observer.
func (h *Hub) BatchApplied(_ context.Context, projectID string, res fileops.BatchResult) {
	h.Broadcast(projectID, Message{
		Type:      MessageBatchComplete,
		Results:   &res,
		Timestamp: h.now(),
	})
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		c.cancel()
	}
}

var _ fileops.Observer = (*Hub)(nil)

// handleWebSocket serves GET /ws/projects/{project}.
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	g.hub.ServeProject(w, r, projectFrom(r).Metadata.ID)
}
