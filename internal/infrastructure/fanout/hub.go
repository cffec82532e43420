package fanout

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Message is the wire envelope pushed to connected viewers.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub pushes detection events to connected websocket viewers. Delivery is
// best-effort: a viewer that cannot keep up is dropped, never waited on.
type Hub struct {
	mu           sync.RWMutex
	sendMu       sync.Mutex
	clients      map[*websocket.Conn]bool
	writeTimeout time.Duration
	logger       *zap.SugaredLogger

	onClientCount func(n int)
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:      make(map[*websocket.Conn]bool),
		writeTimeout: 10 * time.Second,
		logger:       logger,
	}
}

// OnClientCount registers a callback invoked with the viewer count whenever
// it changes; used to feed the metrics gauge.
func (h *Hub) OnClientCount(fn func(n int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onClientCount = fn
}

// HandleWebSocket upgrades the request and keeps the connection registered
// until the client goes away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	h.register(conn)
	defer h.unregister(conn)

	// Drain control frames; viewers only listen.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast pushes payload to every connected viewer. Failed writes drop the
// viewer; no error is returned to the caller.
func (h *Hub) Broadcast(topic string, payload interface{}) {
	data, err := json.Marshal(Message{Type: topic, Payload: payload})
	if err != nil {
		h.logger.Errorw("failed to marshal broadcast payload", "error", err)
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	// Serialize writers; gorilla connections allow one writer at a time.
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debugw("dropping slow websocket viewer", "error", err)
			h.unregister(conn)
			conn.Close()
		}
	}
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	fn := h.onClientCount
	h.mu.Unlock()
	if fn != nil {
		fn(n)
	}
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	n := len(h.clients)
	fn := h.onClientCount
	h.mu.Unlock()
	if fn != nil {
		fn(n)
	}
}
