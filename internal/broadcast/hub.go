package broadcast

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nu7hatch/gouuid"
	"github.com/ticketmesh/market-engine/internal/entity"
	"go.uber.org/zap"
)

// Hub fans accepted market actions out to connected websocket clients.
// Delivery is best effort; a slow client is dropped rather than allowed to
// block the rest.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	messages   chan []byte
}

type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		messages:   make(chan []byte, 256),
	}
}

// Run is the hub's main loop and should run in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case message := <-h.messages:
			h.broadcast(message)
		}
	}
}

func NewClient(conn *websocket.Conn) *Client {
	id := ""
	if u, err := uuid.NewV4(); err == nil {
		id = u.String()
	}

	return &Client{ID: id, Conn: conn, Send: make(chan []byte, 16)}
}

func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// BroadcastEvent is wired to the event manager as a listener callback.
func (h *Hub) BroadcastEvent(msg interface{}) {
	action, ok := msg.(entity.MarketAction)
	if !ok {
		zap.L().Error("Broadcast: Unexpected event payload")
		return
	}

	payload, err := json.Marshal(action)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Broadcast: Failed to marshal action")
		return
	}

	h.messages <- payload
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	zap.L().With(zap.String("client", client.ID)).Debug("Broadcast: Client connected")

	go client.writePump()
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
		client.Conn.Close()
	}
	h.mu.Unlock()

	zap.L().With(zap.String("client", client.ID)).Debug("Broadcast: Client disconnected")
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.RLock()
	stale := make([]*Client, 0)
	for client := range h.clients {
		select {
		case client.Send <- payload:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	// direct call; going through the unregister channel here would deadlock
	// the run loop against itself
	for _, client := range stale {
		h.unregisterClient(client)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
