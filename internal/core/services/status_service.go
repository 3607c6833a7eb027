package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lorrc/dispute-live-backend/internal/core/domain"
	"github.com/lorrc/dispute-live-backend/internal/core/ports"
)

// DisputeStatusService propagates status transitions to connected clients.
// Transitions can originate outside any socket session (an admin resolving a
// dispute from the CRUD screens), so this service is driven by the internal
// event webhook rather than by socket traffic.
type DisputeStatusService struct {
	store       ports.DisputeStore
	broadcaster ports.EventBroadcaster
	activity    ports.ActivityPublisher
	logger      *slog.Logger
}

var _ ports.StatusService = (*DisputeStatusService)(nil)

// NewDisputeStatusService creates a new status feed service.
func NewDisputeStatusService(
	store ports.DisputeStore,
	broadcaster ports.EventBroadcaster,
	activity ports.ActivityPublisher,
	logger *slog.Logger,
) *DisputeStatusService {
	return &DisputeStatusService{
		store:       store,
		broadcaster: broadcaster,
		activity:    activity,
		logger:      logger.With("component", "status_service"),
	}
}

// ApplyStatusChange broadcasts a status transition to the dispute room,
// notifies both parties' user rooms, and publishes the redacted digest to
// monitoring. The store has already been updated by the caller; a transition
// the current store state could not have produced is rejected.
func (s *DisputeStatusService) ApplyStatusChange(ctx context.Context, params ports.StatusChangeParams) error {
	dispute, err := s.store.GetDispute(ctx, params.DisputeID)
	if err != nil {
		return err
	}

	// The webhook usually fires after the store committed, in which case the
	// summary already shows the new status. Anything else must be a move the
	// previous state allowed.
	if dispute.Status != params.NewStatus && !dispute.Status.CanTransitionTo(params.NewStatus) {
		s.logger.Warn("rejecting impossible status transition",
			"dispute_id", params.DisputeID,
			"current", dispute.Status,
			"requested", params.NewStatus,
		)
		return domain.ErrInvalidStatusTransition
	}

	// Room broadcast: the generic status event always, plus the dedicated
	// event for resolutions and escalations.
	if err := s.broadcaster.Broadcast(domain.NewStatusEvent(params.DisputeID, params.NewStatus, params.Actor.Role)); err != nil {
		return err
	}

	switch params.NewStatus {
	case domain.DisputeResolved:
		_ = s.broadcaster.Broadcast(domain.NewResolvedEvent(params.DisputeID, params.Resolution, params.ResolutionNotes))
	case domain.DisputeEscalated:
		_ = s.broadcaster.Broadcast(domain.NewEscalatedEvent(params.DisputeID, params.EscalationReason))
	}

	s.notifyParties(dispute, params.NewStatus)

	s.activity.PublishActivity(domain.NewStatusDigest(*dispute, params.NewStatus, params.Actor.DisplayName, params.OccurredAt))

	return nil
}

// notifyParties drops a short line into each party's user room so dispute
// list views update without a room join.
func (s *DisputeStatusService) notifyParties(dispute *domain.DisputeSummary, newStatus domain.DisputeStatus) {
	message := fmt.Sprintf("Dispute %q is now %s", dispute.Title, newStatus)

	for _, room := range []domain.Room{domain.UserRoom(dispute.ComplainantID), domain.UserRoom(dispute.RespondentID)} {
		_ = s.broadcaster.Broadcast(domain.NewNotificationEvent(room, message, string(domain.ActivityStatusChanged)))
	}
}
