package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is one frame pushed to connected clients.
type Event struct {
	Type string `json:"type"` // "tasks" or "alarm"
	Data any    `json:"data,omitempty"`
}

// Hub fans events out to every connected websocket client. Slow or dead
// clients are dropped rather than blocking the broadcaster.
type Hub struct {
	logger *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]chan Event
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger.With("component", "events"),
		conns:  map[*websocket.Conn]chan Event{},
	}
}

// Broadcast queues ev for every connected client.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.conns {
		select {
		case ch <- ev:
		default:
			// Client is not keeping up; cut it loose.
			h.logger.Warn("dropping slow event client", "remote", conn.RemoteAddr())
			close(ch)
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

var upgrader = websocket.Upgrader{
	// Single-user app on localhost or a trusted LAN; no origin policy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ch := make(chan Event, 16)
	h.mu.Lock()
	h.conns[conn] = ch
	h.mu.Unlock()

	h.logger.Debug("event client connected", "remote", conn.RemoteAddr())

	// Reader goroutine: we never expect frames from the client, but
	// reading is what surfaces the close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.detach(conn)
				return
			}
		}
	}()

	for ev := range ch {
		if err := conn.WriteJSON(ev); err != nil {
			h.detach(conn)
			return
		}
	}
}

func (h *Hub) detach(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.conns[conn]; ok {
		close(ch)
		delete(h.conns, conn)
	}
	h.mu.Unlock()
	conn.Close()
}
