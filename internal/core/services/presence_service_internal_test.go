package services

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/dispute-live-backend/internal/core/domain"
)

// hookedBroadcaster records events and fires a callback on each stop-typing
// broadcast, letting a test interleave work at the exact moment a sweep emits
// its synthetic stop.
type hookedBroadcaster struct {
	mu     sync.Mutex
	events []domain.Event
	onStop func()
}

func (b *hookedBroadcaster) Broadcast(event domain.Event) error {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()

	if payload, ok := event.Payload.(domain.TypingPayload); ok && !payload.IsTyping && b.onStop != nil {
		b.onStop()
	}
	return nil
}

func (b *hookedBroadcaster) snapshot() []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Event(nil), b.events...)
}

// A sweep-driven stop must be enqueued before any start the same user raises
// while the sweep is in flight; otherwise the fresh indicator would be
// cleared by a stale stop.
func TestPresenceService_SweepStopEnqueuedBeforeConcurrentStart(t *testing.T) {
	broadcaster := &hookedBroadcaster{}
	svc := &PresenceService{
		entries:     make(map[int64]map[uuid.UUID]trackedEntry),
		ttl:         time.Minute,
		broadcaster: broadcaster,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		done:        make(chan struct{}),
	}

	typist := domain.Identity{UserID: uuid.New(), DisplayName: "Racing Rae", Role: domain.RoleUser}

	// Seed an entry that has already expired so the next sweep evicts it.
	svc.entries[42] = map[uuid.UUID]trackedEntry{
		typist.UserID: {
			PresenceEntry: domain.PresenceEntry{
				DisputeID:   42,
				UserID:      typist.UserID,
				DisplayName: typist.DisplayName,
				Role:        typist.Role,
				ExpiresAt:   time.Now().Add(-time.Second),
			},
			originConn: "conn-old",
		},
	}

	// While the sweep is broadcasting its stop, the user starts typing again
	// from another goroutine. The refresh must wait for the sweep, so its
	// start event lands after the stop.
	started := make(chan struct{})
	broadcaster.onStop = func() {
		broadcaster.onStop = nil
		go func() {
			svc.StartTyping(42, typist, "conn-new")
			close(started)
		}()
		time.Sleep(50 * time.Millisecond)
	}

	svc.sweep()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("concurrent StartTyping never completed")
	}

	events := broadcaster.snapshot()
	require.Len(t, events, 2)
	assert.False(t, events[0].Payload.(domain.TypingPayload).IsTyping, "sweep's stop must be enqueued first")
	assert.True(t, events[1].Payload.(domain.TypingPayload).IsTyping, "fresh start must follow the stale stop")

	// The refresh survived the sweep: the user is still listed as typing.
	entries := svc.ListTyping(42, uuid.New())
	require.Len(t, entries, 1)
	assert.Equal(t, typist.UserID, entries[0].UserID)
}
