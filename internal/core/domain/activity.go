package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// ActivityType classifies a state-changing action for the monitoring feed.
type ActivityType string

const (
	ActivityNewMessage    ActivityType = "new_message"
	ActivityStatusChanged ActivityType = "status_changed"
	ActivityResolved      ActivityType = "resolved"
	ActivityEscalated     ActivityType = "escalated"
)

// summaryMaxLength bounds the human-readable line pushed to monitors.
const summaryMaxLength = 120

// ActivityDigest is a redacted summary of a state-changing action, fed to
// the monitoring room. It never carries full message bodies; monitors see
// who acted and on which dispute, not what was said.
type ActivityDigest struct {
	DisputeID        int64        `json:"disputeId"`
	DisputeTitle     string       `json:"disputeTitle"`
	ActivityType     ActivityType `json:"activityType"`
	ActorDisplayName string       `json:"actorDisplayName"`
	Summary          string       `json:"summary"`
	Timestamp        time.Time    `json:"timestamp"`
}

// DedupeKey identifies the logical event behind a digest. Two digests with
// the same key within the dedupe window describe the same action.
func (d ActivityDigest) DedupeKey() string {
	return fmt.Sprintf("%d:%s:%d", d.DisputeID, d.ActivityType, d.Timestamp.UnixMilli())
}

// NewActivityEvent wraps a digest for delivery to the monitoring room.
func NewActivityEvent(digest ActivityDigest) Event {
	return Event{
		Type:    EventDisputeActivity,
		Room:    MonitoringRoom,
		Payload: digest,
	}
}

// NewMessageDigest summarizes a confirmed message without exposing its body.
func NewMessageDigest(dispute DisputeSummary, msg DisputeMessage) ActivityDigest {
	return ActivityDigest{
		DisputeID:        dispute.ID,
		DisputeTitle:     dispute.Title,
		ActivityType:     ActivityNewMessage,
		ActorDisplayName: msg.SenderDisplayName,
		Summary:          truncate(fmt.Sprintf("%s sent a message in %q", msg.SenderDisplayName, dispute.Title)),
		Timestamp:        msg.CreatedAt,
	}
}

// NewStatusDigest summarizes a status transition.
func NewStatusDigest(dispute DisputeSummary, newStatus DisputeStatus, actorName string, at time.Time) ActivityDigest {
	activity := ActivityStatusChanged
	switch newStatus {
	case DisputeResolved:
		activity = ActivityResolved
	case DisputeEscalated:
		activity = ActivityEscalated
	}

	return ActivityDigest{
		DisputeID:        dispute.ID,
		DisputeTitle:     dispute.Title,
		ActivityType:     activity,
		ActorDisplayName: actorName,
		Summary:          truncate(fmt.Sprintf("%s changed %q to %s", actorName, dispute.Title, newStatus)),
		Timestamp:        at,
	}
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= summaryMaxLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:summaryMaxLength-1]) + "…"
}
