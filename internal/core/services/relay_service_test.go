package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/dispute-live-backend/internal/core/domain"
	apperrors "github.com/lorrc/dispute-live-backend/internal/core/errors"
	"github.com/lorrc/dispute-live-backend/internal/core/mocks"
	"github.com/lorrc/dispute-live-backend/internal/core/ports"
	"github.com/lorrc/dispute-live-backend/internal/core/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRelayFixture() (*services.RelayService, *mocks.MockDisputeStore, *mocks.MockRoomAuthorizer, *mocks.MockEventBroadcaster, *mocks.MockActivityPublisher) {
	store := mocks.NewMockDisputeStore()
	authorizer := mocks.NewMockRoomAuthorizer()
	broadcaster := mocks.NewMockEventBroadcaster()
	activity := mocks.NewMockActivityPublisher()
	relay := services.NewRelayService(store, authorizer, broadcaster, activity, 5*time.Second, testLogger())
	return relay, store, authorizer, broadcaster, activity
}

func openDispute(id int64, complainant, respondent uuid.UUID) *domain.DisputeSummary {
	return &domain.DisputeSummary{
		ID:            id,
		Title:         "Order never arrived",
		Status:        domain.DisputeOpen,
		ComplainantID: complainant,
		RespondentID:  respondent,
	}
}

func TestRelayService_Send(t *testing.T) {
	sender := domain.Identity{
		UserID:      uuid.New(),
		DisplayName: "Buyer Bea",
		Role:        domain.RoleUser,
	}
	params := ports.SendMessageParams{
		DisputeID: 42,
		Sender:    sender,
		Body:      "Still no tracking number.",
	}

	t.Run("success persists then broadcasts the canonical echo", func(t *testing.T) {
		relay, store, authorizer, broadcaster, activity := newRelayFixture()

		dispute := openDispute(42, sender.UserID, uuid.New())
		stored := &domain.DisputeMessage{
			ID:                uuid.New(),
			DisputeID:         42,
			SenderID:          sender.UserID,
			SenderRole:        sender.Role,
			SenderDisplayName: sender.DisplayName,
			Body:              params.Body,
			CreatedAt:         time.Now(),
		}

		authorizer.On("CanJoinDispute", mock.Anything, int64(42), sender).Return(true, nil)
		store.On("GetDispute", mock.Anything, int64(42)).Return(dispute, nil)
		store.On("AppendMessage", mock.Anything, mock.MatchedBy(func(p ports.AppendMessageParams) bool {
			return p.DisputeID == 42 && p.SenderID == sender.UserID && p.Body == params.Body
		})).Return(stored, nil)
		broadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
			payload, ok := e.Payload.(domain.MessagePayload)
			return ok &&
				e.Type == domain.EventDisputeMessageReceived &&
				e.Room == domain.DisputeRoom(42) &&
				e.OriginConn == "" && // the echo reaches the sender too
				payload.Message.ID == stored.ID
		})).Return(nil)
		activity.On("PublishActivity", mock.MatchedBy(func(d domain.ActivityDigest) bool {
			return d.DisputeID == 42 && d.ActivityType == domain.ActivityNewMessage
		})).Return()

		msg, err := relay.Send(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, msg.ID)

		store.AssertExpectations(t)
		broadcaster.AssertExpectations(t)
		activity.AssertExpectations(t)
	})

	t.Run("store failure suppresses every broadcast", func(t *testing.T) {
		relay, store, authorizer, broadcaster, activity := newRelayFixture()

		authorizer.On("CanJoinDispute", mock.Anything, int64(42), sender).Return(true, nil)
		store.On("GetDispute", mock.Anything, int64(42)).Return(openDispute(42, sender.UserID, uuid.New()), nil)
		store.On("AppendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

		_, err := relay.Send(context.Background(), params)
		assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)

		broadcaster.AssertNotCalled(t, "Broadcast")
		activity.AssertNotCalled(t, "PublishActivity")
	})

	t.Run("non-party sender is forbidden", func(t *testing.T) {
		relay, store, authorizer, broadcaster, activity := newRelayFixture()

		authorizer.On("CanJoinDispute", mock.Anything, int64(42), sender).Return(false, nil)

		_, err := relay.Send(context.Background(), params)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)

		store.AssertNotCalled(t, "AppendMessage")
		broadcaster.AssertNotCalled(t, "Broadcast")
		activity.AssertNotCalled(t, "PublishActivity")
	})

	t.Run("terminal dispute rejects before the write", func(t *testing.T) {
		relay, store, authorizer, broadcaster, _ := newRelayFixture()

		resolved := openDispute(42, sender.UserID, uuid.New())
		resolved.Status = domain.DisputeResolved

		authorizer.On("CanJoinDispute", mock.Anything, int64(42), sender).Return(true, nil)
		store.On("GetDispute", mock.Anything, int64(42)).Return(resolved, nil)

		_, err := relay.Send(context.Background(), params)
		assert.ErrorIs(t, err, apperrors.ErrDisputeClosed)

		store.AssertNotCalled(t, "AppendMessage")
		broadcaster.AssertNotCalled(t, "Broadcast")
	})

	t.Run("unknown dispute passes through not-found", func(t *testing.T) {
		relay, store, authorizer, broadcaster, _ := newRelayFixture()

		authorizer.On("CanJoinDispute", mock.Anything, int64(42), sender).Return(true, nil)
		store.On("GetDispute", mock.Anything, int64(42)).Return(nil, apperrors.ErrDisputeNotFound)

		_, err := relay.Send(context.Background(), params)
		assert.ErrorIs(t, err, apperrors.ErrDisputeNotFound)

		broadcaster.AssertNotCalled(t, "Broadcast")
	})

	t.Run("empty body never reaches the store", func(t *testing.T) {
		relay, store, authorizer, broadcaster, _ := newRelayFixture()

		empty := params
		empty.Body = "   "

		_, err := relay.Send(context.Background(), empty)
		assert.ErrorIs(t, err, domain.ErrMessageBodyRequired)

		authorizer.AssertNotCalled(t, "CanJoinDispute")
		store.AssertNotCalled(t, "AppendMessage")
		broadcaster.AssertNotCalled(t, "Broadcast")
	})
}

func TestRelayService_SendStillReturnsMessageWhenBroadcastFails(t *testing.T) {
	relay, store, authorizer, broadcaster, activity := newRelayFixture()

	sender := domain.Identity{UserID: uuid.New(), DisplayName: "Vendor Val", Role: domain.RoleVendor}
	dispute := openDispute(7, uuid.New(), sender.UserID)
	stored := &domain.DisputeMessage{ID: uuid.New(), DisputeID: 7, SenderID: sender.UserID, Body: "refund issued"}

	authorizer.On("CanJoinDispute", mock.Anything, int64(7), sender).Return(true, nil)
	store.On("GetDispute", mock.Anything, int64(7)).Return(dispute, nil)
	store.On("AppendMessage", mock.Anything, mock.Anything).Return(stored, nil)
	broadcaster.On("Broadcast", mock.Anything).Return(errors.New("hub saturated"))
	activity.On("PublishActivity", mock.Anything).Return()

	// The write committed; a delivery hiccup must not surface as a send error.
	msg, err := relay.Send(context.Background(), ports.SendMessageParams{
		DisputeID: 7,
		Sender:    sender,
		Body:      "refund issued",
	})
	require.NoError(t, err)
	assert.Equal(t, stored.ID, msg.ID)
}
