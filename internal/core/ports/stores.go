package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/dispute-live-backend/internal/core/domain"
)

// AppendMessageParams defines the input for persisting a dispute message.
type AppendMessageParams struct {
	DisputeID         int64
	SenderID          uuid.UUID
	SenderRole        domain.Role
	SenderDisplayName string
	Body              string
	Attachments       []domain.Attachment
}

// DisputeStore is the authoritative store for disputes and their messages.
// The real-time layer persists nothing itself; every message broadcast is a
// canonical echo of what this store confirmed.
type DisputeStore interface {
	AppendMessage(ctx context.Context, params AppendMessageParams) (*domain.DisputeMessage, error)
	GetDispute(ctx context.Context, disputeID int64) (*domain.DisputeSummary, error)
	GetStatus(ctx context.Context, disputeID int64) (domain.DisputeStatus, error)
	IsAuthorizedParty(ctx context.Context, disputeID int64, userID uuid.UUID) (bool, error)
}
