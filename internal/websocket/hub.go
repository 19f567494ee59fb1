package websocket

import (
	"log/slog"
	"sync"

	"github.com/mediaforge/vod-service/internal/types"
)

// Hub maintains the set of subscribers to the media change topic and fans
// published events out to all of them. Delivery is best-effort and in
// process: a subscriber that connects after an event was published simply
// missed it and re-fetches state instead.
type Hub struct {
	// Registered clients mapped by user ID
	clients map[string]*Client

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex to protect clients map
	mu sync.RWMutex

	// Channel of events awaiting fan-out
	broadcast chan *types.Event
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *types.Event, 64),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			// A user keeps at most one live subscription; the old one is closed
			if existingClient, exists := h.clients[client.userID]; exists {
				close(existingClient.send)
				slog.Info("Replaced existing WebSocket connection", slog.String("user_id", client.userID))
			}
			h.clients[client.userID] = client
			h.mu.Unlock()
			slog.Info("WebSocket subscriber connected", slog.String("user_id", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.userID]; ok && current == client {
				delete(h.clients, client.userID)
				close(client.send)
				slog.Info("WebSocket subscriber disconnected", slog.String("user_id", client.userID))
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.broadcastToAll(event)
		}
	}
}

// RegisterClient registers a new client
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient unregisters a client
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// Broadcast publishes an event to every current subscriber. At-most-once:
// if the buffer is full the event is dropped rather than blocking the
// publisher.
func (h *Hub) Broadcast(event *types.Event) {
	select {
	case h.broadcast <- event:
	default:
		slog.Warn("Broadcast channel is full, dropping event", slog.String("type", string(event.Type)))
	}
}

// broadcastToAll delivers the event to every connected client.
func (h *Hub) broadcastToAll(event *types.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for userID, client := range h.clients {
		err := client.SendEvent(event)
		if err != nil {
			slog.Error("Failed to send event to subscriber",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			// Remove the client if sending fails
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
}

// IsUserConnected checks if a user is currently subscribed
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.clients[userID]
	return exists
}

// SubscriberCount returns the number of connected subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
