package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"marketplace/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Event is the JSON frame sent to subscribers.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type message struct {
	channel string
	payload []byte
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	Channel string
}

// Hub keeps the connected clients grouped by channel and fans messages out to them.
type Hub struct {
	channels   map[string]map[*Client]bool
	publish    chan message
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewHub initializes a new WS Hub instance. An empty allowedOrigins list accepts any origin.
func NewHub(logger *slog.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		channels:   make(map[string]map[*Client]bool),
		publish:    make(chan message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Run starts the core dispatch loop for WebSocket events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.channels[client.Channel] == nil {
				h.channels[client.Channel] = make(map[*Client]bool)
			}
			h.channels[client.Channel][client] = true
			h.mu.Unlock()
			metrics.WebsocketClients.Inc()
			h.logger.Debug("websocket client connected", "channel", client.Channel)
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.publish:
			h.mu.RLock()
			var slow []*Client
			for client := range h.channels[msg.channel] {
				select {
				case client.Send <- msg.payload:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range slow {
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.channels[client.Channel]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.channels, client.Channel)
	}
	close(client.Send)
	metrics.WebsocketClients.Dec()
	h.logger.Debug("websocket client disconnected", "channel", client.Channel)
}

// Publish queues an event for every client subscribed to channel. It never
// blocks; events are dropped when the queue is full.
func (h *Hub) Publish(channel, event string, data any) {
	payload, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		h.logger.Error("encode websocket event", "event", event, "error", err)
		return
	}
	select {
	case h.publish <- message{channel: channel, payload: payload}:
	default:
		h.logger.Warn("websocket publish queue full, dropping event", "event", event, "channel", channel)
	}
}

// Subscribers returns the number of clients connected to channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		// Only reading to notice the peer going away.
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("websocket read failed", "error", err)
			}
			break
		}
	}
}

// ServeWs upgrades the request and subscribes the connection to channel.
func ServeWs(hub *Hub, c *gin.Context, channel string) {
	conn, err := hub.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256), Channel: channel}
	client.Hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
