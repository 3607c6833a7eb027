package domain

import (
	"errors"

	"github.com/google/uuid"
)

// Pre-defined errors for dispute-specific rules.
var (
	ErrInvalidStatus           = errors.New("invalid dispute status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// DisputeStatus represents the lifecycle state of a dispute case.
type DisputeStatus string

const (
	DisputeOpen        DisputeStatus = "open"
	DisputeUnderReview DisputeStatus = "under_review"
	DisputeEscalated   DisputeStatus = "escalated"
	DisputeResolved    DisputeStatus = "resolved"
	DisputeClosed      DisputeStatus = "closed"
)

// ParseDisputeStatus validates and converts a status string.
func ParseDisputeStatus(s string) (DisputeStatus, error) {
	switch DisputeStatus(s) {
	case DisputeOpen, DisputeUnderReview, DisputeEscalated, DisputeResolved, DisputeClosed:
		return DisputeStatus(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

// IsTerminal reports whether the dispute accepts no further messages.
func (s DisputeStatus) IsTerminal() bool {
	return s == DisputeResolved || s == DisputeClosed
}

// CanTransitionTo enforces the valid status transitions.
func (s DisputeStatus) CanTransitionTo(next DisputeStatus) bool {
	validTransitions := map[DisputeStatus][]DisputeStatus{
		DisputeOpen:        {DisputeUnderReview, DisputeEscalated, DisputeResolved, DisputeClosed},
		DisputeUnderReview: {DisputeEscalated, DisputeResolved, DisputeClosed},
		DisputeEscalated:   {DisputeUnderReview, DisputeResolved, DisputeClosed},
		DisputeResolved:    {DisputeClosed},
		DisputeClosed:      {},
	}

	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DisputeSummary is the slice of dispute state this subsystem needs from the
// authoritative store: enough to authorize room membership and build activity
// digests, nothing more.
type DisputeSummary struct {
	ID            int64
	Title         string
	Status        DisputeStatus
	ComplainantID uuid.UUID
	RespondentID  uuid.UUID
}

// IsParty reports whether the user is the complainant or the respondent.
func (d *DisputeSummary) IsParty(userID uuid.UUID) bool {
	return d.ComplainantID == userID || d.RespondentID == userID
}
