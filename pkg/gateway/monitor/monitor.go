// Package monitor fans per-call turn events out to operator WebSocket clients.
package monitor

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event kinds published by the call controller.
const (
	EventCallStarted = "call_started"
	EventTurn        = "turn"
	EventTurnFailed  = "turn_failed"
	EventCallEnded   = "call_ended"
)

// Event is one JSON frame on the monitor feed.
type Event struct {
	Type          string    `json:"type"`
	CallUUID      string    `json:"call_uuid"`
	Time          time.Time `json:"time"`
	From          string    `json:"from,omitempty"`
	Status        string    `json:"status,omitempty"`
	UserText      string    `json:"user_text,omitempty"`
	AssistantText string    `json:"assistant_text,omitempty"`
	Error         string    `json:"error,omitempty"`
	SavedTo       string    `json:"saved_to,omitempty"`
}

// Publisher accepts call events. A nil *Hub is a valid no-op publisher.
type Publisher interface {
	Publish(Event)
}

const (
	clientBuffer = 32
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

type client struct {
	send chan Event
}

// Hub broadcasts events to every connected client. Slow clients drop events
// rather than block the publisher.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{logger: logger, clients: make(map[*client]struct{})}
}

// Publish sends e to all clients without blocking.
func (h *Hub) Publish(e Event) {
	if h == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- e:
		default:
			h.logger.Warn("monitor client lagging, event dropped", "type", e.Type, "call_uuid", e.CallUUID)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add() *client {
	c := &client{send: make(chan Event, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request to a WebSocket and streams events until the
// client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := h.add()
	defer h.remove(c)
	h.logger.Info("monitor client connected", "remote", r.RemoteAddr)

	// The feed is write-only; reading detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case e := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
