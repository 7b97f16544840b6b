package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ramonehamilton/deck-winrate/internal/metrics"
	"github.com/ramonehamilton/deck-winrate/internal/winrate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

// Event types.
const (
	TypeCalculate          = "calculate"
	TypeCalculationResult  = "calculation:result"
	TypeCalculationInvalid = "calculation:invalid"
	TypeProfileResult      = "profile:result"
	TypeProfileInvalid     = "profile:invalid"
	TypeUnsupported        = "error:unsupported"
)

// Event represents a WebSocket event. ID echoes the ID of the client message
// an event answers.
type Event struct {
	Type string      `json:"type"`
	ID   string      `json:"id,omitempty"`
	Data interface{} `json:"data"`
}

// inbound is a message sent by a client.
type inbound struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data"`
}

// ErrorData is the payload of *:invalid events.
type ErrorData struct {
	Error string `json:"error"`
}

// Client represents a WebSocket client connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// closed is set, under hub.mu, when the hub closes send.
	closed bool
}

// HubConfig configures a Hub.
type HubConfig struct {
	// Calculator answers calculate messages. Default: winrate defaults.
	Calculator *winrate.Calculator

	// Metrics is optional.
	Metrics *metrics.Recorder

	// CheckOrigin decides whether an upgrade request is accepted.
	// Default: allow every origin.
	CheckOrigin func(r *http.Request) bool

	Logger *slog.Logger
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Messages to fan out to every client.
	broadcast chan []byte

	// Register requests from clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Signal to stop the hub.
	done chan struct{}

	// Ensures Stop() is idempotent.
	stopOnce sync.Once

	// Indicates hub has been stopped.
	stopped bool

	// Mutex for thread-safe client operations.
	mu sync.RWMutex

	upgrader   websocket.Upgrader
	calculator *winrate.Calculator
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

// NewHub creates a new Hub instance.
func NewHub(config HubConfig) *Hub {
	if config.Calculator == nil {
		config.Calculator = winrate.NewCalculator(winrate.DefaultOptions())
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.CheckOrigin == nil {
		config.CheckOrigin = func(*http.Request) bool { return true }
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     config.CheckOrigin,
		},
		calculator: config.Calculator,
		metrics:    config.Metrics,
		logger:     config.Logger,
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			// Clean up all clients before exiting
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			h.reportClients(0)
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.reportClients(count)
			h.logger.Info("WebSocket client connected", "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.reportClients(count)
			h.logger.Info("WebSocket client disconnected", "clients", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client; drop it rather than block everyone else.
					client.close()
					delete(h.clients, client)
				}
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.reportClients(count)
		}
	}
}

func (h *Hub) reportClients(n int) {
	if h.metrics != nil {
		h.metrics.SetWebSocketClients(n)
	}
}

// BroadcastEvent broadcasts an event to all connected clients.
// Returns false if the hub has been stopped.
func (h *Hub) BroadcastEvent(event Event) bool {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()

	if stopped {
		return false
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket event", "type", event.Type, "error", err)
		return false
	}

	select {
	case h.broadcast <- data:
		return true
	case <-h.done:
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop gracefully stops the hub and cleans up all client connections.
// Safe to call multiple times.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// IsStopped returns true if the hub has been stopped.
func (h *Hub) IsStopped() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stopped
}

// ServeWs handles WebSocket requests from clients.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	if h.IsStopped() {
		http.Error(w, "WebSocket hub is not running", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case h.register <- client:
		go client.writePump()
		go client.readPump()
	case <-h.done:
		if err := conn.Close(); err != nil {
			h.logger.Warn("WebSocket close failed", "error", err)
		}
	}
}

// handleMessage answers one client message. The reply goes to the sender only.
func (h *Hub) handleMessage(raw []byte) Event {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Event{Type: TypeCalculationInvalid, Data: ErrorData{Error: "invalid message: " + err.Error()}}
	}

	if msg.Type != TypeCalculate {
		return Event{Type: TypeUnsupported, ID: msg.ID, Data: ErrorData{Error: "unsupported message type: " + msg.Type}}
	}

	var req winrate.Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return Event{Type: TypeCalculationInvalid, ID: msg.ID, Data: ErrorData{Error: "invalid request: " + err.Error()}}
	}

	start := time.Now()
	result, err := h.calculator.Calculate(req)
	if h.metrics != nil {
		h.metrics.ObserveCalculation(metrics.SourceWebSocket, time.Since(start), err)
	}
	if err != nil {
		return Event{Type: TypeCalculationInvalid, ID: msg.ID, Data: ErrorData{Error: err.Error()}}
	}

	return Event{Type: TypeCalculationResult, ID: msg.ID, Data: result}
}

// close closes the send channel. The caller holds hub.mu.
func (c *Client) close() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// reply queues an event for this client only.
func (c *Client) reply(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		c.hub.logger.Error("Failed to marshal WebSocket reply", "type", event.Type, "error", err)
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn("WebSocket client send buffer full, dropping reply", "type", event.Type)
	}
}

// readPump pumps messages from the WebSocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
			// Hub already stopped, client cleanup handled there
		}
		if err := c.conn.Close(); err != nil {
			c.hub.logger.Debug("WebSocket close failed", "error", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.hub.logger.Warn("WebSocket SetReadDeadline failed", "error", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket read failed", "error", err)
			}
			break
		}
		c.reply(c.hub.handleMessage(message))
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
// Each queued message is written as its own frame so clients can decode
// frames independently.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.hub.logger.Debug("WebSocket close failed", "error", err)
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.hub.logger.Warn("WebSocket SetWriteDeadline failed", "error", err)
				return
			}
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Warn("WebSocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.hub.logger.Warn("WebSocket SetWriteDeadline failed", "error", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
