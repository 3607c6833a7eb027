package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/dispute-live-backend/internal/core/domain"
	"github.com/lorrc/dispute-live-backend/internal/core/ports"
)

// trackedEntry pairs a presence entry with the connection that produced it,
// so indicator broadcasts can skip the typist's own socket.
type trackedEntry struct {
	domain.PresenceEntry
	originConn string
}

// PresenceService holds ephemeral typing state per (dispute, user). Entries
// expire TTL after the last signal; a background sweep emits synthetic
// stop-typing broadcasts for entries whose owner went silent without an
// explicit stop. Nothing here is ever persisted.
type PresenceService struct {
	mu      sync.Mutex
	entries map[int64]map[uuid.UUID]trackedEntry

	ttl         time.Duration
	broadcaster ports.EventBroadcaster
	logger      *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

var _ ports.PresenceTracker = (*PresenceService)(nil)

// NewPresenceService creates the tracker and starts its sweep loop. The sweep
// runs at half the TTL so no indicator outlives the TTL by more than one
// sweep interval.
func NewPresenceService(broadcaster ports.EventBroadcaster, ttl time.Duration, logger *slog.Logger) *PresenceService {
	s := &PresenceService{
		entries:     make(map[int64]map[uuid.UUID]trackedEntry),
		ttl:         ttl,
		broadcaster: broadcaster,
		logger:      logger.With("component", "presence_service"),
		done:        make(chan struct{}),
	}

	go s.sweepLoop(ttl / 2)

	return s
}

// StartTyping inserts or refreshes the typing entry for the user and
// broadcasts the indicator to everyone else in the dispute room. A steady
// stream of signals keeps the entry alive without re-sending full state.
//
// The broadcast happens while s.mu is held, here and in every other mutation:
// Broadcast never blocks, and enqueueing under the lock keeps indicator
// events in the same order as the state changes that produced them. A stop
// for an already-removed entry can therefore never land after the start that
// re-inserted it.
func (s *PresenceService) StartTyping(disputeID int64, identity domain.Identity, originConn string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entries[disputeID] == nil {
		s.entries[disputeID] = make(map[uuid.UUID]trackedEntry)
	}
	s.entries[disputeID][identity.UserID] = trackedEntry{
		PresenceEntry: domain.PresenceEntry{
			DisputeID:   disputeID,
			UserID:      identity.UserID,
			DisplayName: identity.DisplayName,
			Role:        identity.Role,
			ExpiresAt:   time.Now().Add(s.ttl),
		},
		originConn: originConn,
	}

	_ = s.broadcaster.Broadcast(domain.NewTypingEvent(disputeID, identity.UserID, identity.DisplayName, true, originConn))
}

// StopTyping removes the entry immediately and broadcasts the cleared
// indicator. Removing an absent entry is a no-op with no broadcast.
func (s *PresenceService) StopTyping(disputeID int64, userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.removeLocked(disputeID, userID); ok {
		_ = s.broadcaster.Broadcast(domain.NewTypingEvent(disputeID, userID, entry.DisplayName, false, entry.originConn))
	}
}

// ListTyping returns the live entries for a dispute, excluding the caller.
func (s *PresenceService) ListTyping(disputeID int64, excludingUserID uuid.UUID) []domain.PresenceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	result := make([]domain.PresenceEntry, 0)
	for userID, entry := range s.entries[disputeID] {
		if userID == excludingUserID || entry.Expired(now) {
			continue
		}
		result = append(result, entry.PresenceEntry)
	}
	return result
}

// PurgeUser removes the user's entries for the given disputes without
// waiting for the TTL. A disconnect is stronger evidence than a timeout, so
// the cleared indicator goes out right away.
func (s *PresenceService) PurgeUser(disputeIDs []int64, userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, disputeID := range disputeIDs {
		if entry, ok := s.removeLocked(disputeID, userID); ok {
			_ = s.broadcaster.Broadcast(domain.NewTypingEvent(disputeID, userID, entry.DisplayName, false, entry.originConn))
		}
	}
}

// Shutdown stops the sweep loop.
func (s *PresenceService) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

// removeLocked deletes an entry and garbage-collects the dispute bucket.
// Caller must hold s.mu.
func (s *PresenceService) removeLocked(disputeID int64, userID uuid.UUID) (trackedEntry, bool) {
	bucket, ok := s.entries[disputeID]
	if !ok {
		return trackedEntry{}, false
	}
	entry, ok := bucket[userID]
	if !ok {
		return trackedEntry{}, false
	}
	delete(bucket, userID)
	if len(bucket) == 0 {
		delete(s.entries, disputeID)
	}
	return entry, true
}

// sweepLoop periodically evicts expired entries and broadcasts a synthetic
// stop for each, so a client that crashed mid-type never leaves a frozen
// indicator behind.
func (s *PresenceService) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

func (s *PresenceService) sweep() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for disputeID, bucket := range s.entries {
		for userID, entry := range bucket {
			if !entry.Expired(now) {
				continue
			}
			delete(bucket, userID)
			s.logger.Debug("expiring stale typing indicator",
				"dispute_id", entry.DisputeID,
				"user_id", entry.UserID,
			)
			_ = s.broadcaster.Broadcast(domain.NewTypingEvent(entry.DisputeID, entry.UserID, entry.DisplayName, false, entry.originConn))
		}
		if len(bucket) == 0 {
			delete(s.entries, disputeID)
		}
	}
}
