package domain

import (
	"github.com/google/uuid"
)

// MessagePayload is the body of a dispute-message-received event: the
// canonical echo of a store-confirmed message.
type MessagePayload struct {
	DisputeID int64          `json:"disputeId"`
	Message   DisputeMessage `json:"message"`
}

// StatusPayload is the body of a dispute-status-changed event.
type StatusPayload struct {
	DisputeID int64         `json:"disputeId"`
	Status    DisputeStatus `json:"status"`
	ActorRole Role          `json:"actorRole"`
}

// ResolutionPayload is the body of a dispute-resolved event.
type ResolutionPayload struct {
	DisputeID       int64  `json:"disputeId"`
	Resolution      string `json:"resolution"`
	ResolutionNotes string `json:"resolutionNotes,omitempty"`
}

// EscalationPayload is the body of a dispute-escalated event.
type EscalationPayload struct {
	DisputeID        int64  `json:"disputeId"`
	EscalationReason string `json:"escalationReason,omitempty"`
}

// TypingPayload is the body of a dispute-typing-indicator event.
type TypingPayload struct {
	DisputeID int64     `json:"disputeId"`
	UserID    uuid.UUID `json:"userId"`
	UserName  string    `json:"userName"`
	IsTyping  bool      `json:"isTyping"`
}

// NotificationPayload is a short human-readable line for passive audiences
// (user rooms and the monitoring room).
type NotificationPayload struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ErrorPayload is sent to the offending connection only; errors are never
// broadcast.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMessageEvent builds the canonical echo event for a confirmed message.
// The echo includes the sender's own connection so optimistic client state
// reconciles against what the store actually persisted.
func NewMessageEvent(msg DisputeMessage) Event {
	return Event{
		Type: EventDisputeMessageReceived,
		Room: DisputeRoom(msg.DisputeID),
		Payload: MessagePayload{
			DisputeID: msg.DisputeID,
			Message:   msg,
		},
	}
}

// NewTypingEvent builds a typing-indicator event, skipping the typist's own
// connection.
func NewTypingEvent(disputeID int64, userID uuid.UUID, userName string, isTyping bool, originConn string) Event {
	return Event{
		Type:       EventDisputeTypingIndicator,
		Room:       DisputeRoom(disputeID),
		OriginConn: originConn,
		Payload: TypingPayload{
			DisputeID: disputeID,
			UserID:    userID,
			UserName:  userName,
			IsTyping:  isTyping,
		},
	}
}

// NewStatusEvent builds a status-change broadcast for a dispute room.
func NewStatusEvent(disputeID int64, status DisputeStatus, actorRole Role) Event {
	return Event{
		Type: EventDisputeStatusChanged,
		Room: DisputeRoom(disputeID),
		Payload: StatusPayload{
			DisputeID: disputeID,
			Status:    status,
			ActorRole: actorRole,
		},
	}
}

// NewResolvedEvent builds a resolution broadcast for a dispute room.
func NewResolvedEvent(disputeID int64, resolution, notes string) Event {
	return Event{
		Type: EventDisputeResolved,
		Room: DisputeRoom(disputeID),
		Payload: ResolutionPayload{
			DisputeID:       disputeID,
			Resolution:      resolution,
			ResolutionNotes: notes,
		},
	}
}

// NewEscalatedEvent builds an escalation broadcast for a dispute room.
func NewEscalatedEvent(disputeID int64, reason string) Event {
	return Event{
		Type: EventDisputeEscalated,
		Room: DisputeRoom(disputeID),
		Payload: EscalationPayload{
			DisputeID:        disputeID,
			EscalationReason: reason,
		},
	}
}

// NewNotificationEvent builds a passive notification for the given room.
func NewNotificationEvent(room Room, message, notifType string) Event {
	return Event{
		Type: EventDisputeNotification,
		Room: room,
		Payload: NotificationPayload{
			Message: message,
			Type:    notifType,
		},
	}
}

// NewErrorEvent builds an error event addressed to a single connection.
// Room is intentionally empty; the client pushes it straight onto its own
// send queue.
func NewErrorEvent(code, message string) Event {
	return Event{
		Type: EventError,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}
