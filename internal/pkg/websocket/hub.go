package websocket

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Envelope is a payload addressed to every connection of one user
type Envelope struct {
	UserID  int64
	Payload []byte
}

// Hub maintains the set of active clients and routes payloads to them by user
type Hub struct {
	// Registered clients organized by user ID
	clients map[int64]map[*Client]bool

	// Payloads waiting to be delivered
	deliver chan Envelope

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// closed when Run returns
	done chan struct{}

	// Guards clients for ClientCount
	mu sync.RWMutex

	// Logger for Hub operations
	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		deliver:    make(chan Envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run handles registrations and deliveries until ctx is cancelled, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case env := <-h.deliver:
			h.deliverEnvelope(env)
		}
	}
}

// registerClient registers a new client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	h.logger.Info().
		Int64("userID", client.userID).
		Str("addr", client.conn.RemoteAddr().String()).
		Msg("Client registered")
}

// unregisterClient unregisters a client from the hub
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

// removeLocked drops a client; h.mu must be held for writing
func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)

	// If no more clients for this user, clean up
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}

	h.logger.Info().
		Int64("userID", client.userID).
		Str("addr", client.conn.RemoteAddr().String()).
		Msg("Client unregistered")
}

// deliverEnvelope sends a payload to every connection of one user
func (h *Hub) deliverEnvelope(env Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[env.UserID]
	if !ok {
		h.logger.Debug().Int64("userID", env.UserID).Msg("No subscribers for user")
		return
	}

	for client := range clients {
		select {
		case client.send <- env.Payload:
			// Payload sent successfully
		default:
			// Client's send buffer is full, they might be slow or disconnected
			h.removeLocked(client)
		}
	}

	h.logger.Debug().
		Int64("userID", env.UserID).
		Int("clientCount", len(clients)).
		Msg("Payload delivered to user")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// Publish queues a payload for every connection of userID. It gives up when ctx is done.
func (h *Hub) Publish(ctx context.Context, userID int64, payload []byte) error {
	select {
	case h.deliver <- Envelope{UserID: userID, Payload: payload}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return errHubStopped
	}
}

var errHubStopped = errors.New("websocket hub stopped")

// ClientCount returns the number of open connections for a user
func (h *Hub) ClientCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
