package websocket

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/lorrc/dispute-live-backend/internal/core/domain"
	"github.com/lorrc/dispute-live-backend/internal/core/ports"
)

// Hub is the room registry and connection lifecycle manager. It maintains
// the set of connections subscribed to each room and fans events out to
// them. All membership mutations happen on the Run goroutine or under the
// hub mutex, so a join can never race a broadcast to the same room.
type Hub struct {
	// clients maps user IDs to their active connections.
	// A single user can have multiple connections (multiple tabs/devices).
	clients map[uuid.UUID]map[*Client]bool

	// rooms maps room keys to subscribed clients. Rooms are created lazily
	// on first join and garbage-collected at zero membership.
	rooms map[domain.Room]map[*Client]bool

	// broadcast is the single ordered feed of outbound events.
	broadcast chan domain.Event

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// presence is purged when a connection drops; a disconnect is stronger
	// evidence than a TTL expiry.
	presence ports.PresenceTracker

	// mu protects the clients and rooms maps
	mu sync.RWMutex

	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		rooms:      make(map[domain.Room]map[*Client]bool),
		broadcast:  make(chan domain.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// SetPresenceTracker wires the tracker whose entries are purged on
// disconnect. Set once during startup, before Run.
func (h *Hub) SetPresenceTracker(presence ports.PresenceTracker) {
	h.presence = presence
}

// Broadcast enqueues an event for delivery to its room. Implements
// ports.EventBroadcaster. Events for the same room are delivered to members
// in enqueue order.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"room", event.Room,
		)
		return nil
	}
}

// Run starts the hub's event loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// registerClient adds a client to the hub.
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.Identity.UserID] == nil {
		h.clients[client.Identity.UserID] = make(map[*Client]bool)
	}
	h.clients[client.Identity.UserID][client] = true

	h.logger.Info("client registered",
		"conn_id", client.ID,
		"user_id", client.Identity.UserID,
		"role", client.Identity.Role,
		"total_connections", len(h.clients[client.Identity.UserID]),
	)
}

// unregisterClient removes a client from the hub and all rooms, and purges
// any typing state its user held in the dispute it was viewing.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()

	// 1. Remove from the global user map
	if userClients, ok := h.clients[client.Identity.UserID]; ok {
		if _, exists := userClients[client]; exists {
			delete(userClients, client)
			if len(userClients) == 0 {
				delete(h.clients, client.Identity.UserID)
			}
		}
	}

	// 2. Remove from all subscribed rooms
	rooms := client.Rooms()
	for _, room := range rooms {
		h.removeFromRoomLocked(client, room)
	}

	disputeID := client.CurrentDispute()
	h.mu.Unlock()

	// 3. Presence purge outside the map lock; it broadcasts synthetic
	// stop-typing events back through this hub.
	if disputeID != 0 && h.presence != nil {
		h.presence.PurgeUser([]int64{disputeID}, client.Identity.UserID)
	}

	// 4. Safely close the send channel
	client.CloseSend()

	h.logger.Info("client unregistered",
		"conn_id", client.ID,
		"user_id", client.Identity.UserID,
		"rooms_left", len(rooms),
	)
}

// broadcastEvent sends an event to all clients subscribed to its room,
// skipping the originating connection when the event says so.
func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.RLock()
	room, ok := h.rooms[event.Room]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Copy the client list to avoid holding the lock while sending
	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"room", event.Room,
		"client_count", len(clients),
	)

	var slow []*Client
	for _, client := range clients {
		if event.OriginConn != "" && client.ID == event.OriginConn {
			continue
		}
		if !client.queueEvent(event) {
			// Client's send buffer is full; drop the connection rather than
			// stall the room.
			h.logger.Warn("client send buffer full, unregistering",
				"conn_id", client.ID,
				"user_id", client.Identity.UserID,
			)
			slow = append(slow, client)
		}
	}

	for _, client := range slow {
		h.unregisterClient(client)
	}
}

// joinRoom adds a client to a room. Idempotent.
func (h *Hub) joinRoom(client *Client, room domain.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	client.addRoom(room)

	h.logger.Debug("client joined room",
		"conn_id", client.ID,
		"user_id", client.Identity.UserID,
		"room", room,
	)
}

// leaveRoom removes a client from a room. Idempotent.
func (h *Hub) leaveRoom(client *Client, room domain.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoomLocked(client, room)
	client.removeRoom(room)

	h.logger.Debug("client left room",
		"conn_id", client.ID,
		"user_id", client.Identity.UserID,
		"room", room,
	)
}

// joinDisputeRoom enters a dispute room, implicitly leaving any previously
// joined dispute room. A connection views at most one dispute at a time.
func (h *Hub) joinDisputeRoom(client *Client, disputeID int64) {
	if previous := client.CurrentDispute(); previous != 0 && previous != disputeID {
		h.leaveRoom(client, domain.DisputeRoom(previous))
	}
	client.setCurrentDispute(disputeID)
	h.joinRoom(client, domain.DisputeRoom(disputeID))
}

// leaveDisputeRoom leaves a dispute room and clears the current-dispute mark.
func (h *Hub) leaveDisputeRoom(client *Client, disputeID int64) {
	h.leaveRoom(client, domain.DisputeRoom(disputeID))
	if client.CurrentDispute() == disputeID {
		client.setCurrentDispute(0)
	}
}

// removeFromRoomLocked deletes the membership entry and garbage-collects the
// room. Caller must hold h.mu.
func (h *Hub) removeFromRoomLocked(client *Client, room domain.Room) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// MembersOf returns the connection IDs currently joined to a room. Used for
// diagnostics and presence cleanup checks.
func (h *Hub) MembersOf(room domain.Room) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := make([]string, 0, len(h.rooms[room]))
	for client := range h.rooms[room] {
		members = append(members, client.ID)
	}
	return members
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, userClients := range h.clients {
		count += len(userClients)
	}
	return count
}

// RoomCount returns the number of active rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// IsUserConnected checks if a user has any active connections.
func (h *Hub) IsUserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.clients[userID]
	return ok && len(clients) > 0
}
