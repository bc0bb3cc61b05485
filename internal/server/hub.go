package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/maauso/pushtotalk/internal/events"
)

const (
	// DefaultClientBuffer is how many events may queue per websocket client
	// before it is dropped as too slow.
	DefaultClientBuffer = 64

	writeWait = 5 * time.Second
)

var _ events.Sink = (*Hub)(nil)

// Hub streams events to websocket clients on GET /events.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
	buffer   int

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan events.Event
}

// NewHub creates a Hub that accepts connections from allowedOrigins.
// Requests without an Origin header are always accepted.
func NewHub(allowedOrigins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	origins := append([]string(nil), allowedOrigins...)
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || originAllowed(origins, origin)
			},
		},
		logger:  logger,
		buffer:  DefaultClientBuffer,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and streams events until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Warn("websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		return
	}

	c := &client{conn: conn, send: make(chan events.Event, h.buffer)}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	h.logger.Info("websocket client connected", slog.String("remote_addr", r.RemoteAddr))

	go h.writeLoop(c)

	// Inbound messages are ignored; reading detects the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
	h.logger.Info("websocket client disconnected", slog.String("remote_addr", r.RemoteAddr))
}

func (h *Hub) writeLoop(c *client) {
	defer func() { _ = c.conn.Close() }()

	for e := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(e); err != nil {
			h.logger.Warn("websocket write failed", slog.String("error", err.Error()))
			h.unregister(c)
			return
		}
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Publish queues e for every connected client. Clients whose queue is full
// are disconnected.
func (h *Hub) Publish(_ context.Context, e events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- e:
		default:
			h.logger.Warn("dropping slow websocket client",
				slog.String("remote_addr", c.conn.RemoteAddr().String()),
			)
			delete(h.clients, c)
			close(c.send)
		}
	}
	return nil
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	return nil
}
