package websocket

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// conn is the part of *websocket.Conn the hub writes to.
type conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Hub tracks one live connection per user and pushes notifications to it.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]conn
	log     *zerolog.Logger
}

func NewHub(log *zerolog.Logger) *Hub {
	return &Hub{clients: make(map[uuid.UUID]conn), log: log}
}

// Register replaces any previous connection of the user.
func (h *Hub) Register(userID uuid.UUID, c conn) {
	h.mu.Lock()
	prev, ok := h.clients[userID]
	h.clients[userID] = c
	h.mu.Unlock()

	if ok && prev != c {
		_ = prev.Close()
	}
	h.log.Debug().Str("user_id", userID.String()).Msg("websocket client registered")
}

// Unregister drops c if it is still the user's current connection.
func (h *Hub) Unregister(userID uuid.UUID, c conn) {
	h.mu.Lock()
	if cur, ok := h.clients[userID]; ok && cur == c {
		delete(h.clients, userID)
	}
	h.mu.Unlock()
	h.log.Debug().Str("user_id", userID.String()).Msg("websocket client unregistered")
}

// Push writes message to the user's connection. It reports whether the
// user was connected and the write succeeded; a failed connection is
// dropped.
func (h *Hub) Push(userID uuid.UUID, message any) bool {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	if err := c.WriteJSON(message); err != nil {
		h.log.Warn().Err(err).Str("user_id", userID.String()).Msg("websocket push failed")
		h.Unregister(userID, c)
		_ = c.Close()
		return false
	}
	return true
}

func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve keeps the connection registered until the client goes away.
// Incoming frames are read and discarded.
func (h *Hub) Serve(userID uuid.UUID, c *websocket.Conn) {
	h.Register(userID, c)
	defer func() {
		h.Unregister(userID, c)
		_ = c.Close()
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
