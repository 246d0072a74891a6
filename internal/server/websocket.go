package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/zerostock/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum request size accepted on any endpoint
	maxMessageSize = 8192

	// Statuses queued per subscriber before it is dropped
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// client is one websocket subscriber
type client struct {
	conn       *websocket.Conn
	send       chan string
	remoteAddr string
	closeOnce  sync.Once
}

func (c *client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Hub fans status strings out to every websocket subscriber
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
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
		c.closeSend()
	}
}

// Broadcast queues status for every subscriber. A subscriber whose queue
// is full is disconnected rather than blocking the others.
func (h *Hub) Broadcast(status string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- status:
		default:
			logging.Warn("Dropping slow websocket subscriber", zap.String("remote_addr", c.remoteAddr))
			delete(h.clients, c)
			c.closeSend()
		}
	}
}

// Count returns the number of subscribers
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.closeSend()
	}
}

// handleWebSocket upgrades the connection. Every text or binary frame the
// peer sends is a write request; statuses go to all subscribers.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		logging.Debug("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := &client{
		conn:       conn,
		send:       make(chan string, sendBuffer),
		remoteAddr: r.RemoteAddr,
	}
	if !s.hub.register(c) {
		_ = conn.Close()
		return
	}
	logging.LogConnection(c.remoteAddr, "websocket_upgraded")

	go c.writePump()
	s.readPump(r, c)
}

// readPump handles incoming requests until the peer goes away
func (s *Server) readPump(r *http.Request, c *client) {
	defer func() {
		s.hub.unregister(c)
		logging.LogConnection(c.remoteAddr, "websocket_closed")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("Connection closed or error reading frame",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		status := s.handler.HandleWrite(r.Context(), data)
		logging.LogRequest(c.remoteAddr, "ws-write", status)
		s.hub.Broadcast(status)
	}
}

// writePump sends queued statuses and keeps the connection alive with pings.
// It owns all writes to the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case status, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(status)); err != nil {
				logging.Debug("Failed to send status",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
