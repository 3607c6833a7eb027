package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/dispute-live-backend/internal/core/domain"
	"github.com/lorrc/dispute-live-backend/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockDisputeStore is a mock implementation of ports.DisputeStore
type MockDisputeStore struct {
	mock.Mock
}

func NewMockDisputeStore() *MockDisputeStore {
	return &MockDisputeStore{}
}

func (m *MockDisputeStore) AppendMessage(ctx context.Context, params ports.AppendMessageParams) (*domain.DisputeMessage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DisputeMessage), args.Error(1)
}

func (m *MockDisputeStore) GetDispute(ctx context.Context, disputeID int64) (*domain.DisputeSummary, error) {
	args := m.Called(ctx, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DisputeSummary), args.Error(1)
}

func (m *MockDisputeStore) GetStatus(ctx context.Context, disputeID int64) (domain.DisputeStatus, error) {
	args := m.Called(ctx, disputeID)
	return args.Get(0).(domain.DisputeStatus), args.Error(1)
}

func (m *MockDisputeStore) IsAuthorizedParty(ctx context.Context, disputeID int64, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, disputeID, userID)
	return args.Bool(0), args.Error(1)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockActivityPublisher is a mock implementation of ports.ActivityPublisher
type MockActivityPublisher struct {
	mock.Mock
}

func NewMockActivityPublisher() *MockActivityPublisher {
	return &MockActivityPublisher{}
}

func (m *MockActivityPublisher) PublishActivity(digest domain.ActivityDigest) {
	m.Called(digest)
}

func (m *MockActivityPublisher) Shutdown() {
	m.Called()
}

// MockRoomAuthorizer is a mock implementation of ports.RoomAuthorizer
type MockRoomAuthorizer struct {
	mock.Mock
}

func NewMockRoomAuthorizer() *MockRoomAuthorizer {
	return &MockRoomAuthorizer{}
}

func (m *MockRoomAuthorizer) CanJoinDispute(ctx context.Context, disputeID int64, identity domain.Identity) (bool, error) {
	args := m.Called(ctx, disputeID, identity)
	return args.Bool(0), args.Error(1)
}

// MockPresenceTracker is a mock implementation of ports.PresenceTracker
type MockPresenceTracker struct {
	mock.Mock
}

func NewMockPresenceTracker() *MockPresenceTracker {
	return &MockPresenceTracker{}
}

func (m *MockPresenceTracker) StartTyping(disputeID int64, identity domain.Identity, originConn string) {
	m.Called(disputeID, identity, originConn)
}

func (m *MockPresenceTracker) StopTyping(disputeID int64, userID uuid.UUID) {
	m.Called(disputeID, userID)
}

func (m *MockPresenceTracker) ListTyping(disputeID int64, excludingUserID uuid.UUID) []domain.PresenceEntry {
	args := m.Called(disputeID, excludingUserID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.PresenceEntry)
}

func (m *MockPresenceTracker) PurgeUser(disputeIDs []int64, userID uuid.UUID) {
	m.Called(disputeIDs, userID)
}

func (m *MockPresenceTracker) Shutdown() {
	m.Called()
}

// MockRelayService is a mock implementation of ports.RelayService
type MockRelayService struct {
	mock.Mock
}

func NewMockRelayService() *MockRelayService {
	return &MockRelayService{}
}

func (m *MockRelayService) Send(ctx context.Context, params ports.SendMessageParams) (*domain.DisputeMessage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DisputeMessage), args.Error(1)
}

// MockStatusService is a mock implementation of ports.StatusService
type MockStatusService struct {
	mock.Mock
}

func NewMockStatusService() *MockStatusService {
	return &MockStatusService{}
}

func (m *MockStatusService) ApplyStatusChange(ctx context.Context, params ports.StatusChangeParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}
