package domain

import (
	"time"

	"github.com/google/uuid"
)

// PresenceEntry is the ephemeral typing state for one user in one dispute.
// Entries live only in memory; they are refreshed on every typing signal and
// expire TTL after the last one.
type PresenceEntry struct {
	DisputeID   int64
	UserID      uuid.UUID
	DisplayName string
	Role        Role
	ExpiresAt   time.Time
}

// Expired reports whether the entry is past its TTL at the given instant.
func (p PresenceEntry) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
