package status

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/safety-monitor/internal/engine"
	"github.com/oshokin/safety-monitor/internal/logger"
)

// writeTimeout bounds one websocket frame write.
const writeTimeout = 200 * time.Millisecond

// Hub fans engine status changes out to websocket clients.
// It implements engine.StatusSink.
type Hub struct {
	// writeMu serializes frame writes; a connection allows one writer.
	writeMu sync.Mutex

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	last  []byte

	// changed wakes Run; only the latest status is sent.
	changed chan struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns:   make(map[*websocket.Conn]struct{}),
		changed: make(chan struct{}, 1),
	}
}

// PublishStatus implements engine.StatusSink. It never blocks.
func (h *Hub) PublishStatus(status engine.Status) {
	payload, err := json.Marshal(status)
	if err != nil {
		logger.Errorf(context.Background(), "Failed to encode status: %v", err)

		return
	}

	h.mu.Lock()
	h.last = payload
	h.mu.Unlock()

	select {
	case h.changed <- struct{}{}:
	default:
	}
}

// Run broadcasts status changes until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.changed:
			h.mu.Lock()
			payload := h.last
			h.mu.Unlock()

			h.broadcast(payload)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.conns)
}

// attach registers c and greets it with the latest status.
func (h *Hub) attach(c *websocket.Conn) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	h.mu.Lock()
	h.conns[c] = struct{}{}
	last := h.last
	h.mu.Unlock()

	if last == nil {
		return nil
	}

	return write(c, last)
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

func (h *Hub) snapshot() []*websocket.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		clients = append(clients, c)
	}

	return clients
}

func (h *Hub) broadcast(payload []byte) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	for _, c := range h.snapshot() {
		if err := write(c, payload); err != nil {
			_ = c.Close()
			h.remove(c)
		}
	}
}

// closeAll disconnects every client.
func (h *Hub) closeAll() {
	for _, c := range h.snapshot() {
		_ = c.Close()
		h.remove(c)
	}
}

func write(c *websocket.Conn, payload []byte) error {
	_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))

	return c.WriteMessage(websocket.TextMessage, payload)
}
