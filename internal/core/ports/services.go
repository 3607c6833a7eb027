package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/dispute-live-backend/internal/core/domain"
)

// EventBroadcaster defines the port for delivering events to room members.
// Implemented by the WebSocket hub.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// SendMessageParams defines the input for relaying a dispute message.
type SendMessageParams struct {
	DisputeID   int64
	Sender      domain.Identity
	Body        string
	Attachments []domain.Attachment
}

// RelayService defines the port for the message relay: persist via the
// dispute store, then broadcast the canonical echo.
type RelayService interface {
	Send(ctx context.Context, params SendMessageParams) (*domain.DisputeMessage, error)
}

// PresenceTracker defines the port for ephemeral typing state.
type PresenceTracker interface {
	StartTyping(disputeID int64, identity domain.Identity, originConn string)
	StopTyping(disputeID int64, userID uuid.UUID)
	ListTyping(disputeID int64, excludingUserID uuid.UUID) []domain.PresenceEntry
	PurgeUser(disputeIDs []int64, userID uuid.UUID)
	Shutdown()
}

// ActivityPublisher defines the port for the monitoring fanout.
type ActivityPublisher interface {
	PublishActivity(digest domain.ActivityDigest)
	Shutdown()
}

// StatusChangeParams defines the input for a store-sourced status transition.
type StatusChangeParams struct {
	DisputeID        int64
	NewStatus        domain.DisputeStatus
	Actor            domain.Identity
	Resolution       string
	ResolutionNotes  string
	EscalationReason string
	OccurredAt       time.Time
}

// StatusService defines the port for propagating status transitions that may
// originate outside any socket session (for example a REST-driven resolution).
type StatusService interface {
	ApplyStatusChange(ctx context.Context, params StatusChangeParams) error
}

// RoomAuthorizer defines the port the room registry uses to decide whether an
// identity may join a dispute room.
type RoomAuthorizer interface {
	CanJoinDispute(ctx context.Context, disputeID int64, identity domain.Identity) (bool, error)
}
