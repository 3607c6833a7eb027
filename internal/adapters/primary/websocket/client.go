package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/lorrc/dispute-live-backend/internal/core/domain"
	apperrors "github.com/lorrc/dispute-live-backend/internal/core/errors"
	"github.com/lorrc/dispute-live-backend/internal/core/ports"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// Inbound events per second a single connection may produce, with a
	// small burst for typing signals.
	inboundRate  = 10
	inboundBurst = 20

	// Deadline for store-backed work triggered by one inbound event.
	handleTimeout = 10 * time.Second
)

// Client is one authenticated connection: the middleman between the
// websocket transport and the hub. Reconnection is always a brand-new
// Client with a fresh ID; there is no server-side session resurrection.
type Client struct {
	// ID is the opaque, process-unique connection id.
	ID string

	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan domain.Event

	// Identity resolved from the verified token at handshake time.
	Identity domain.Identity

	relay      ports.RelayService
	presence   ports.PresenceTracker
	authorizer ports.RoomAuthorizer

	// limiter bounds inbound event processing per connection.
	limiter *rate.Limiter

	// rooms tracks joined rooms; currentDispute is the one dispute room a
	// connection may occupy at a time (0 = none).
	rooms          map[domain.Room]bool
	currentDispute int64

	// sendMu and sendClosed guard Send against the hub closing the channel
	// while the ReadPump goroutine is still queueing error or replay events.
	sendMu     sync.Mutex
	sendClosed bool

	// mu protects rooms and currentDispute
	mu sync.RWMutex

	logger *slog.Logger
}

// NewClient creates a client for an upgraded, authenticated connection.
func NewClient(
	hub *Hub,
	conn *websocket.Conn,
	identity domain.Identity,
	relay ports.RelayService,
	presence ports.PresenceTracker,
	authorizer ports.RoomAuthorizer,
	logger *slog.Logger,
) *Client {
	id := uuid.NewString()
	return &Client{
		ID:         id,
		Hub:        hub,
		Conn:       conn,
		Send:       make(chan domain.Event, 256),
		Identity:   identity,
		relay:      relay,
		presence:   presence,
		authorizer: authorizer,
		limiter:    rate.NewLimiter(inboundRate, inboundBurst),
		rooms:      make(map[domain.Room]bool),
		logger:     logger.With("conn_id", id, "user_id", identity.UserID.String()),
	}
}

// CloseSend safely closes the Send channel exactly once. Queueing attempts
// that race the close become no-ops instead of sends on a closed channel.
func (c *Client) CloseSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.Send)
}

// queueEvent attempts to enqueue an event for this connection without
// blocking. It returns false only when the buffer is full; events offered to
// an already-closed connection are dropped and reported as delivered.
func (c *Client) queueEvent(event domain.Event) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return true
	}
	select {
	case c.Send <- event:
		return true
	default:
		return false
	}
}

func (c *Client) addRoom(room domain.Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[room] = true
}

func (c *Client) removeRoom(room domain.Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, room)
}

// InRoom checks if the client is joined to a room.
func (c *Client) InRoom(room domain.Room) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[room]
}

// Rooms returns a copy of all joined rooms.
func (c *Client) Rooms() []domain.Room {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]domain.Room, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// CurrentDispute returns the dispute the connection is viewing, 0 if none.
func (c *Client) CurrentDispute() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentDispute
}

func (c *Client) setCurrentDispute(disputeID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentDispute = disputeID
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine, one per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		if !c.limiter.Allow() {
			c.sendError("RATE_LIMITED", "too many events, slow down")
			continue
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeJSON writes a JSON message to the websocket connection.
func (c *Client) writeJSON(event domain.Event) error {
	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(event); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// --- Incoming Message Handling ---

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    domain.EventType `json:"type"`
	Payload json.RawMessage  `json:"payload"`
}

// DisputePayload is the payload for join/leave messages.
type DisputePayload struct {
	DisputeID int64 `json:"disputeId"`
}

// SendMessagePayload is the payload for send-dispute-message.
type SendMessagePayload struct {
	DisputeID   int64               `json:"disputeId"`
	Message     string              `json:"message"`
	Attachments []domain.Attachment `json:"attachments,omitempty"`
}

// TypingSignalPayload is the payload for dispute-typing.
type TypingSignalPayload struct {
	DisputeID int64 `json:"disputeId"`
	IsTyping  bool  `json:"isTyping"`
}

// handleIncomingMessage routes one decoded client event.
func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		c.sendError("BAD_REQUEST", "malformed event")
		return
	}

	switch msg.Type {
	case domain.EventJoinDispute:
		c.handleJoinDispute(msg.Payload)

	case domain.EventLeaveDispute:
		c.handleLeaveDispute(msg.Payload)

	case domain.EventJoinUserDisputes:
		c.Hub.joinRoom(c, domain.UserRoom(c.Identity.UserID))

	case domain.EventJoinDisputesMonitor:
		c.handleJoinMonitoring()

	case domain.EventSendDisputeMessage:
		c.handleSendMessage(msg.Payload)

	case domain.EventDisputeTyping:
		c.handleTyping(msg.Payload)

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

func (c *Client) handleJoinDispute(payload json.RawMessage) {
	var p DisputePayload
	if err := json.Unmarshal(payload, &p); err != nil || p.DisputeID <= 0 {
		c.sendError("BAD_REQUEST", "invalid dispute id")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	allowed, err := c.authorizer.CanJoinDispute(ctx, p.DisputeID, c.Identity)
	if err != nil {
		c.logger.Error("join authorization check failed", "dispute_id", p.DisputeID, "error", err)
		c.sendError("STORE_UNAVAILABLE", "could not verify dispute access")
		return
	}
	if !allowed {
		c.logger.Warn("forbidden dispute room join", "dispute_id", p.DisputeID)
		c.sendError("FORBIDDEN", "not a party to this dispute")
		return
	}

	c.Hub.joinDisputeRoom(c, p.DisputeID)

	// Replay live typing state so the new member does not miss indicators
	// raised before the join.
	for _, entry := range c.presence.ListTyping(p.DisputeID, c.Identity.UserID) {
		c.trySend(domain.NewTypingEvent(entry.DisputeID, entry.UserID, entry.DisplayName, true, ""))
	}
}

func (c *Client) handleLeaveDispute(payload json.RawMessage) {
	var p DisputePayload
	if err := json.Unmarshal(payload, &p); err != nil || p.DisputeID <= 0 {
		c.sendError("BAD_REQUEST", "invalid dispute id")
		return
	}

	// Leaving the view also drops any typing state the user had there.
	c.presence.StopTyping(p.DisputeID, c.Identity.UserID)
	c.Hub.leaveDisputeRoom(c, p.DisputeID)
}

func (c *Client) handleJoinMonitoring() {
	if !c.Identity.Role.IsAdmin() {
		c.logger.Warn("forbidden monitoring room join", "role", c.Identity.Role)
		c.sendError("FORBIDDEN", "monitoring is restricted to administrators")
		return
	}
	c.Hub.joinRoom(c, domain.MonitoringRoom)
}

func (c *Client) handleSendMessage(payload json.RawMessage) {
	var p SendMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil || p.DisputeID <= 0 {
		c.sendError("BAD_REQUEST", "invalid message payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	_, err := c.relay.Send(ctx, ports.SendMessageParams{
		DisputeID:   p.DisputeID,
		Sender:      c.Identity,
		Body:        p.Message,
		Attachments: p.Attachments,
	})
	if err != nil {
		// The relay guarantees no broadcast happened; only the sender
		// learns about the failure.
		c.sendError(apperrors.CodeFor(err), err.Error())
		return
	}

	// The sender stops being "typing" the moment a message lands.
	c.presence.StopTyping(p.DisputeID, c.Identity.UserID)
}

func (c *Client) handleTyping(payload json.RawMessage) {
	var p TypingSignalPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.DisputeID <= 0 {
		c.sendError("BAD_REQUEST", "invalid typing payload")
		return
	}

	// Typing signals are only meaningful inside the room being viewed.
	if !c.InRoom(domain.DisputeRoom(p.DisputeID)) {
		c.sendError("FORBIDDEN", "join the dispute before signaling typing")
		return
	}

	if p.IsTyping {
		c.presence.StartTyping(p.DisputeID, c.Identity, c.ID)
	} else {
		c.presence.StopTyping(p.DisputeID, c.Identity.UserID)
	}
}

// sendError reports a failure to this connection only. Errors are never
// broadcast to a room.
func (c *Client) sendError(code, message string) {
	c.trySend(domain.NewErrorEvent(code, message))
}

// trySend queues an event for this connection, dropping it if the buffer is
// full or the connection is already closed.
func (c *Client) trySend(event domain.Event) {
	if !c.queueEvent(event) {
		c.logger.Debug("send buffer full, dropping direct event", "event_type", event.Type)
	}
}
