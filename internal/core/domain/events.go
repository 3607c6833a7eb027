package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Room identifies a named multicast group of connections.
type Room string

// MonitoringRoom is the admin-only, platform-wide activity room.
const MonitoringRoom Room = "disputes:monitoring"

// DisputeRoom returns the room scoped to a single dispute case.
func DisputeRoom(disputeID int64) Room {
	return Room(fmt.Sprintf("dispute:%d", disputeID))
}

// UserRoom returns the room carrying passive notifications for one user's
// own disputes.
func UserRoom(userID uuid.UUID) Room {
	return Room("user:" + userID.String())
}

// EventType defines the type of a real-time event.
type EventType string

// Client-to-server event types.
const (
	EventJoinDispute         EventType = "join-dispute"
	EventLeaveDispute        EventType = "leave-dispute"
	EventJoinUserDisputes    EventType = "join-user-disputes"
	EventJoinDisputesMonitor EventType = "join-disputes-monitoring"
	EventSendDisputeMessage  EventType = "send-dispute-message"
	EventDisputeTyping       EventType = "dispute-typing"
)

// Server-to-client event types.
const (
	EventDisputeMessageReceived EventType = "dispute-message-received"
	EventDisputeStatusChanged   EventType = "dispute-status-changed"
	EventDisputeResolved        EventType = "dispute-resolved"
	EventDisputeEscalated       EventType = "dispute-escalated"
	EventDisputeTypingIndicator EventType = "dispute-typing-indicator"
	EventDisputeActivity        EventType = "dispute-activity"
	EventDisputeNotification    EventType = "dispute-notification"
	EventError                  EventType = "error"
)

// Event is the payload sent over WebSocket. Room routes the event to a
// specific multicast group; OriginConn, when set, names a connection the hub
// must skip (used for typing indicators, which are never echoed back to the
// typist).
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`

	Room       Room   `json:"-"`
	OriginConn string `json:"-"`
}
