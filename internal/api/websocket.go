package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"bomberman-arena/internal/config"
	"bomberman-arena/internal/metrics"
	"bomberman-arena/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

var (
	ErrClientClosed   = errors.New("client connection closed")
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Client is one WebSocket connection and the player it carries.
// It satisfies room.Connection.
type Client struct {
	id      string
	ip      string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn, ip string, limits config.ResourceLimits) *Client {
	return &Client{
		id:      uuid.NewString(),
		ip:      ip,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		limiter: rate.NewLimiter(rate.Limit(limits.MessagesPerSecond), limits.MessageBurst),
	}
}

// PlayerID is the server-assigned id for this connection
func (c *Client) PlayerID() string { return c.id }

// Send queues msg without blocking. A full buffer counts as a failed send.
func (c *Client) Send(msg protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		metrics.IncrementWSMessages()
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Connected reports whether the socket is still open
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// allow applies the inbound message budget
func (c *Client) allow() bool { return c.limiter.Allow() }

// close stops further sends and lets the write pump drain and exit
func (c *Client) close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.send)
	return true
}

func (c *Client) readPump(h *WebSocketHub) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ WebSocket read error for %s: %v", c.id, err)
			}
			return
		}
		h.handler.Handle(c, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WebSocketHub tracks live clients with DoS protection
type WebSocketHub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	limits   config.ResourceLimits
	conns    *ConnectionLimiter
	origins  *OriginChecker
	upgrader websocket.Upgrader
	handler  *MessageHandler
}

// NewWebSocketHub creates a hub that feeds every inbound frame to handler
func NewWebSocketHub(handler *MessageHandler, limits config.ResourceLimits, origins *OriginChecker) *WebSocketHub {
	if origins == nil {
		origins = NewOriginChecker(nil)
	}
	h := &WebSocketHub{
		clients: make(map[*Client]struct{}),
		limits:  limits,
		conns:   NewConnectionLimiter(limits),
		origins: origins,
		handler: handler,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if h.origins.Allowed(origin) {
				return true
			}
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			metrics.RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ConnectionStats reports accepted and refused upgrades
func (h *WebSocketHub) ConnectionStats() LimiterStats {
	return h.conns.Stats()
}

// HandleWebSocket upgrades the request and starts the client's pumps
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	switch err := h.conns.Acquire(ip); {
	case errors.Is(err, ErrServerFull):
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", h.limits.MaxConnections)
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	case errors.Is(err, ErrTooManyFromIP):
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.conns.Release(ip)
		return
	}

	c := newClient(conn, ip, h.limits)
	h.register(c)

	go c.writePump()
	go c.readPump(h)
}

func (h *WebSocketHub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("📱 Client %s connected from %s (%d total)", c.id, c.ip, count)
	metrics.UpdateWSConnections(count)
}

// unregister is the socket-close path. It runs the same cleanup as QUIT_GAME.
func (h *WebSocketHub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	h.conns.Release(c.ip)
	c.close()
	h.handler.Disconnect(c)

	log.Printf("📱 Client %s disconnected (%d remaining)", c.id, count)
	metrics.UpdateWSConnections(count)
}

// CloseAll closes every socket; used on shutdown after rooms have ended
func (h *WebSocketHub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}
