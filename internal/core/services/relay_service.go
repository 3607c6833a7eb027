package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lorrc/dispute-live-backend/internal/core/domain"
	apperrors "github.com/lorrc/dispute-live-backend/internal/core/errors"
	"github.com/lorrc/dispute-live-backend/internal/core/ports"
)

// RelayService implements the message relay: authorize, persist through the
// authoritative store, then broadcast the canonical echo. The relay never
// broadcasts an unconfirmed write.
type RelayService struct {
	store        ports.DisputeStore
	authorizer   ports.RoomAuthorizer
	broadcaster  ports.EventBroadcaster
	activity     ports.ActivityPublisher
	storeTimeout time.Duration
	logger       *slog.Logger
}

var _ ports.RelayService = (*RelayService)(nil)

// NewRelayService creates a new message relay.
func NewRelayService(
	store ports.DisputeStore,
	authorizer ports.RoomAuthorizer,
	broadcaster ports.EventBroadcaster,
	activity ports.ActivityPublisher,
	storeTimeout time.Duration,
	logger *slog.Logger,
) *RelayService {
	return &RelayService{
		store:        store,
		authorizer:   authorizer,
		broadcaster:  broadcaster,
		activity:     activity,
		storeTimeout: storeTimeout,
		logger:       logger.With("component", "relay_service"),
	}
}

// Send relays a message for a dispute. On success the returned message is
// the store-confirmed copy; the same copy has already been broadcast to the
// dispute room, including the sender's own connections.
func (s *RelayService) Send(ctx context.Context, params ports.SendMessageParams) (*domain.DisputeMessage, error) {
	if err := domain.ValidateMessageBody(params.Body); err != nil {
		return nil, err
	}

	// 1. Same authorization check as a room join.
	allowed, err := s.authorizer.CanJoinDispute(ctx, params.DisputeID, params.Sender)
	if err != nil {
		return nil, s.classifyStoreError(err)
	}
	if !allowed {
		return nil, apperrors.ErrForbidden
	}

	// 2. Fetch the dispute once: the status gate and the digest title both
	// come from this snapshot.
	dispute, err := s.store.GetDispute(ctx, params.DisputeID)
	if err != nil {
		return nil, s.classifyStoreError(err)
	}

	// 3. Fail fast on terminal disputes. The store enforces this too, but
	// rejecting here avoids a doomed write.
	if dispute.Status.IsTerminal() {
		return nil, apperrors.ErrDisputeClosed
	}

	// 4. Persist. Bounded timeout so a stalled store cannot hang the
	// connection's worker.
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	msg, err := s.store.AppendMessage(storeCtx, ports.AppendMessageParams{
		DisputeID:         params.DisputeID,
		SenderID:          params.Sender.UserID,
		SenderRole:        params.Sender.Role,
		SenderDisplayName: params.Sender.DisplayName,
		Body:              params.Body,
		Attachments:       params.Attachments,
	})
	if err != nil {
		s.logger.Error("message persistence failed, suppressing broadcast",
			"dispute_id", params.DisputeID,
			"sender_id", params.Sender.UserID,
			"error", err,
		)
		return nil, s.classifyStoreError(err)
	}

	// 5. Broadcast the canonical echo to the dispute room.
	if err := s.broadcaster.Broadcast(domain.NewMessageEvent(*msg)); err != nil {
		s.logger.Warn("broadcast failed after successful persist",
			"dispute_id", params.DisputeID,
			"message_id", msg.ID,
			"error", err,
		)
	}

	// 6. Redacted digest for the monitoring room.
	s.activity.PublishActivity(domain.NewMessageDigest(*dispute, *msg))

	return msg, nil
}

// classifyStoreError maps store failures onto the relay's error taxonomy.
// Business rejections pass through; infrastructure failures become
// ErrStoreUnavailable.
func (s *RelayService) classifyStoreError(err error) error {
	if errors.Is(err, apperrors.ErrDisputeNotFound) ||
		errors.Is(err, apperrors.ErrDisputeClosed) ||
		errors.Is(err, apperrors.ErrForbidden) {
		return err
	}
	return apperrors.ErrStoreUnavailable
}
