// Package ws implements the WebSocket adapter that streams pool events
// (approval lifecycle, agent registration) to connected clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type client struct {
	send   chan []byte
	cancel context.CancelFunc
}

// Hub fans pool events out to every connected WebSocket client. Each
// client gets a buffered send queue and a dedicated writer goroutine, so
// one slow consumer cannot stall a broadcast.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// HandleWS upgrades the request to a WebSocket, attaches the client to the
// hub, and blocks in the read loop until the peer disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	cl := &client{send: make(chan []byte, 16), cancel: cancel}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket connected", "remote", r.RemoteAddr)

	go func() {
		defer func() {
			h.detach(cl)
			_ = conn.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case data := <-cl.send:
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					return
				}
			}
		}
	}()

	// Inbound frames are only read to detect disconnects and answer pings.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			cancel()
			return
		}
	}
}

// Broadcast queues a message for every connected client. Clients whose
// queue is full are disconnected instead of blocking the caller.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			cl.cancel()
			delete(h.clients, cl)
			slog.Debug("websocket client dropped, send queue full")
		}
	}
}

// ConnectionCount returns the number of attached clients.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) detach(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[cl]; ok {
		cl.cancel()
		delete(h.clients, cl)
		slog.Info("websocket disconnected")
	}
}
