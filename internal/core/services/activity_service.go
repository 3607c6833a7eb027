package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lorrc/dispute-live-backend/internal/core/domain"
	"github.com/lorrc/dispute-live-backend/internal/core/ports"
)

// ActivityService fans redacted activity digests out to the monitoring room.
// It is deliberately dumb about where digests come from: the relay, the
// status feed, or any future source all flow through PublishActivity. A short
// in-memory dedupe window keeps a twice-triggered logical event from showing
// up twice on the monitors.
type ActivityService struct {
	mu   sync.Mutex
	seen map[string]time.Time

	window      time.Duration
	broadcaster ports.EventBroadcaster
	logger      *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

var _ ports.ActivityPublisher = (*ActivityService)(nil)

// NewActivityService creates the fanout and starts its dedupe-window cleanup.
func NewActivityService(broadcaster ports.EventBroadcaster, dedupeWindow time.Duration, logger *slog.Logger) *ActivityService {
	s := &ActivityService{
		seen:        make(map[string]time.Time),
		window:      dedupeWindow,
		broadcaster: broadcaster,
		logger:      logger.With("component", "activity_service"),
		done:        make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// PublishActivity pushes the digest to the monitoring room, once per logical
// event. A duplicate trigger within the dedupe window is dropped silently.
func (s *ActivityService) PublishActivity(digest domain.ActivityDigest) {
	key := digest.DedupeKey()
	now := time.Now()

	s.mu.Lock()
	if last, ok := s.seen[key]; ok && now.Sub(last) < s.window {
		s.mu.Unlock()
		s.logger.Debug("dropping duplicate activity digest", "key", key)
		return
	}
	s.seen[key] = now
	s.mu.Unlock()

	_ = s.broadcaster.Broadcast(domain.NewActivityEvent(digest))
	_ = s.broadcaster.Broadcast(domain.NewNotificationEvent(domain.MonitoringRoom, digest.Summary, string(digest.ActivityType)))
}

// Shutdown stops the cleanup loop.
func (s *ActivityService) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

func (s *ActivityService) cleanupLoop() {
	ticker := time.NewTicker(s.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.done:
			return
		}
	}
}

func (s *ActivityService) cleanup() {
	cutoff := time.Now().Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, at := range s.seen {
		if at.Before(cutoff) {
			delete(s.seen, key)
		}
	}
}
