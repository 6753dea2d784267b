// Package relay implements the real-time signaling relay: it owns the
// table of live WebSocket connections, binds application user IDs to
// connections via the identify handshake, and fans typed envelopes out
// to every connection bound to a target user.
//
// The relay keeps no call or session state. Each pair of peers runs a
// self-contained offer/answer exchange; the server is a pure router
// keyed by user ID.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/skillspace/skillspace/internal/models"
	"github.com/skillspace/skillspace/protocol"
)

const (
	// opTimeout bounds the collaborator calls (user lookup, message
	// persistence) so a stuck backend cannot hang a handler forever.
	opTimeout = 5 * time.Second

	sendBufferSize = 256
)

// Store is the narrow slice of the storage layer the relay needs.
type Store interface {
	UserExists(ctx context.Context, id int) (bool, error)
	CreateMessage(ctx context.Context, message models.InsertMessage) (*models.SkillMessage, error)
}

// Presence mirrors identify/close events to an external tracker (Redis).
// Implementations must not block for long; failures are log-only.
type Presence interface {
	Identified(ctx context.Context, userID int, clientID string)
	Departed(ctx context.Context, userID int, clientID string)
}

// Hub is the connection registry. One instance per process, passed
// explicitly to the WebSocket handler.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client          // clientID -> connection
	byUser  map[int]map[string]*Client  // userID -> bound connections

	store    Store
	presence Presence // nil when no mirror is configured
	log      *zap.Logger
}

// NewHub creates a registry backed by the given store. presence may be nil.
func NewHub(store Store, presence Presence, log *zap.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		byUser:   make(map[int]map[string]*Client),
		store:    store,
		presence: presence,
		log:      log,
	}
}

// Handle registers a freshly upgraded connection and starts its pumps.
// The connected confirmation is queued before the read loop starts, so
// the client observes it before any relayed traffic.
func (h *Hub) Handle(conn *websocket.Conn) {
	client := &Client{
		ID:   uuid.New().String(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	h.log.Info("websocket client connected", zap.String("clientId", client.ID))

	client.sendJSON(protocol.ServerNotice{
		Type:    protocol.EnvelopeConnected,
		Message: "Connected to SkillSpace WebSocket Server",
	})

	go client.writePump()
	go client.readPump()
}

// bind associates userID with the client. A later identify overwrites
// the previous binding; it does not merge.
func (h *Hub) bind(c *Client, userID int) {
	h.mu.Lock()
	if c.userID != 0 {
		h.unbindLocked(c)
	}
	c.userID = userID
	set, ok := h.byUser[userID]
	if !ok {
		set = make(map[string]*Client)
		h.byUser[userID] = set
	}
	set[c.ID] = c
	h.mu.Unlock()

	if h.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		h.presence.Identified(ctx, userID, c.ID)
	}
}

func (h *Hub) unbindLocked(c *Client) {
	if set, ok := h.byUser[c.userID]; ok {
		delete(set, c.ID)
		if len(set) == 0 {
			delete(h.byUser, c.userID)
		}
	}
}

// remove drops the registry entry for the client. Idempotent: removing
// an already-removed client is a no-op. No offline notification is sent.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, present := h.clients[c.ID]
	if present {
		delete(h.clients, c.ID)
		if c.userID != 0 {
			h.unbindLocked(c)
		}
	}
	userID := c.userID
	h.mu.Unlock()

	if !present {
		return
	}

	if h.presence != nil && userID != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		h.presence.Departed(ctx, userID, c.ID)
	}

	h.log.Info("websocket client disconnected", zap.String("clientId", c.ID))
}

// fanOut queues data on every connection bound to any of the target
// user IDs. A target with zero bound connections is a no-op.
func (h *Hub) fanOut(data []byte, userIDs ...int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool)
	for _, id := range userIDs {
		for _, client := range h.byUser[id] {
			if seen[client.ID] {
				continue
			}
			seen[client.ID] = true
			client.enqueue(data)
		}
	}
}

// connectionCount reports the number of live registry entries.
func (h *Hub) connectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
