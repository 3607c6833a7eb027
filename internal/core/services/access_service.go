package services

import (
	"context"

	"github.com/lorrc/dispute-live-backend/internal/core/domain"
	"github.com/lorrc/dispute-live-backend/internal/core/ports"
)

// AccessService decides who may enter a dispute room. The same check gates
// message sends, so the relay and the room registry can never disagree.
type AccessService struct {
	store ports.DisputeStore
}

var _ ports.RoomAuthorizer = (*AccessService)(nil)

// NewAccessService creates the room authorizer backed by the dispute store.
func NewAccessService(store ports.DisputeStore) *AccessService {
	return &AccessService{store: store}
}

// CanJoinDispute reports whether the identity is the complainant, the
// respondent, or an admin. Admins skip the store round trip entirely.
func (s *AccessService) CanJoinDispute(ctx context.Context, disputeID int64, identity domain.Identity) (bool, error) {
	if identity.Role.IsAdmin() {
		return true, nil
	}
	return s.store.IsAuthorizedParty(ctx, disputeID, identity.UserID)
}
