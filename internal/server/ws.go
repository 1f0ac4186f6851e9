package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/logging"
)

const (
	clientBuffer = 32
	writeWait    = 2 * time.Second
)

// The default origin check admits clients without an Origin header and pages
// served from the same host.
var upgrader = websocket.Upgrader{}

// Message is one item on the event stream.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// EventHub fans messages out to websocket clients. A client that falls
// behind loses messages rather than stalling the sender.
type EventHub struct {
	logger  *slog.Logger
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
	closed  bool
}

// NewEventHub creates an EventHub.
func NewEventHub(logger *slog.Logger) *EventHub {
	return &EventHub{
		logger:  logging.OrDefault(logger),
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// Broadcast sends a typed message to every connected client. It never blocks.
func (h *EventHub) Broadcast(typ string, data any) {
	payload, err := json.Marshal(Message{Type: typ, Data: data})
	if err != nil {
		h.logger.Warn("encode event", "type", typ, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- payload:
		default:
			h.logger.Debug("event client lagging, message dropped", "remote", conn.RemoteAddr().String())
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", "error", err)
		return
	}

	ch := make(chan []byte, clientBuffer)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = ch
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Reads only detect the client going away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		h.remove(conn)
		conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case payload, ok := <-ch:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

func (h *EventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(ch)
	}
}

// Close disconnects every client and refuses new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn, ch := range h.clients {
		delete(h.clients, conn)
		close(ch)
	}
}
