package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/lorrc/dispute-live-backend/internal/core/domain"
	"github.com/lorrc/dispute-live-backend/internal/core/mocks"
	"github.com/lorrc/dispute-live-backend/internal/core/services"
)

func sampleDigest(at time.Time) domain.ActivityDigest {
	return domain.ActivityDigest{
		DisputeID:        42,
		DisputeTitle:     "Order never arrived",
		ActivityType:     domain.ActivityNewMessage,
		ActorDisplayName: "Buyer Bea",
		Summary:          `Buyer Bea sent a message in "Order never arrived"`,
		Timestamp:        at,
	}
}

func TestActivityService_PublishActivity(t *testing.T) {
	broadcaster := mocks.NewMockEventBroadcaster()
	broadcaster.On("Broadcast", mock.Anything).Return(nil)

	svc := services.NewActivityService(broadcaster, 5*time.Second, testLogger())
	defer svc.Shutdown()

	svc.PublishActivity(sampleDigest(time.Now()))

	// One digest event and one notification, both to the monitoring room.
	broadcaster.AssertCalled(t, "Broadcast", mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventDisputeActivity && e.Room == domain.MonitoringRoom
	}))
	broadcaster.AssertCalled(t, "Broadcast", mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventDisputeNotification && e.Room == domain.MonitoringRoom
	}))
	broadcaster.AssertNumberOfCalls(t, "Broadcast", 2)
}

func TestActivityService_DedupesWithinWindow(t *testing.T) {
	broadcaster := mocks.NewMockEventBroadcaster()
	broadcaster.On("Broadcast", mock.Anything).Return(nil)

	svc := services.NewActivityService(broadcaster, 5*time.Second, testLogger())
	defer svc.Shutdown()

	at := time.Now()
	svc.PublishActivity(sampleDigest(at))
	svc.PublishActivity(sampleDigest(at))
	svc.PublishActivity(sampleDigest(at))

	// Only the first trigger fans out.
	broadcaster.AssertNumberOfCalls(t, "Broadcast", 2)
}

func TestActivityService_DistinctEventsAreNotDeduped(t *testing.T) {
	broadcaster := mocks.NewMockEventBroadcaster()
	broadcaster.On("Broadcast", mock.Anything).Return(nil)

	svc := services.NewActivityService(broadcaster, 5*time.Second, testLogger())
	defer svc.Shutdown()

	at := time.Now()

	first := sampleDigest(at)
	second := sampleDigest(at.Add(time.Second)) // different timestamp, different logical event
	third := sampleDigest(at)
	third.ActivityType = domain.ActivityStatusChanged

	svc.PublishActivity(first)
	svc.PublishActivity(second)
	svc.PublishActivity(third)

	broadcaster.AssertNumberOfCalls(t, "Broadcast", 6)
}

func TestActivityService_RepublishAfterWindowExpires(t *testing.T) {
	broadcaster := mocks.NewMockEventBroadcaster()
	broadcaster.On("Broadcast", mock.Anything).Return(nil)

	svc := services.NewActivityService(broadcaster, 50*time.Millisecond, testLogger())
	defer svc.Shutdown()

	digest := sampleDigest(time.Now())

	svc.PublishActivity(digest)
	time.Sleep(80 * time.Millisecond)
	svc.PublishActivity(digest)

	// Same key, but the window elapsed between triggers.
	broadcaster.AssertNumberOfCalls(t, "Broadcast", 4)
}

func TestActivityDigest_DedupeKey(t *testing.T) {
	at := time.Now()
	a := sampleDigest(at)
	b := sampleDigest(at)
	assert.Equal(t, a.DedupeKey(), b.DedupeKey())

	c := sampleDigest(at.Add(time.Millisecond))
	assert.NotEqual(t, a.DedupeKey(), c.DedupeKey())
}
