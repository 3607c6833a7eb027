package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/dispute-live-backend/internal/core/domain"
)

func TestParseDisputeStatus(t *testing.T) {
	for _, valid := range []string{"open", "under_review", "escalated", "resolved", "closed"} {
		status, err := domain.ParseDisputeStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, domain.DisputeStatus(valid), status)
	}

	_, err := domain.ParseDisputeStatus("pending")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestDisputeStatus_Transitions(t *testing.T) {
	assert.True(t, domain.DisputeOpen.CanTransitionTo(domain.DisputeUnderReview))
	assert.True(t, domain.DisputeUnderReview.CanTransitionTo(domain.DisputeEscalated))
	assert.True(t, domain.DisputeEscalated.CanTransitionTo(domain.DisputeResolved))
	assert.True(t, domain.DisputeResolved.CanTransitionTo(domain.DisputeClosed))

	// Closed is terminal
	assert.False(t, domain.DisputeClosed.CanTransitionTo(domain.DisputeOpen))
	assert.False(t, domain.DisputeClosed.CanTransitionTo(domain.DisputeResolved))

	// No reopening a resolved dispute
	assert.False(t, domain.DisputeResolved.CanTransitionTo(domain.DisputeOpen))
}

func TestDisputeStatus_IsTerminal(t *testing.T) {
	assert.True(t, domain.DisputeResolved.IsTerminal())
	assert.True(t, domain.DisputeClosed.IsTerminal())
	assert.False(t, domain.DisputeOpen.IsTerminal())
	assert.False(t, domain.DisputeUnderReview.IsTerminal())
	assert.False(t, domain.DisputeEscalated.IsTerminal())
}

func TestDisputeSummary_IsParty(t *testing.T) {
	complainant := uuid.New()
	respondent := uuid.New()
	dispute := &domain.DisputeSummary{
		ID:            42,
		ComplainantID: complainant,
		RespondentID:  respondent,
	}

	assert.True(t, dispute.IsParty(complainant))
	assert.True(t, dispute.IsParty(respondent))
	assert.False(t, dispute.IsParty(uuid.New()))
}

func TestParseRole(t *testing.T) {
	role, err := domain.ParseRole("admin")
	require.NoError(t, err)
	assert.True(t, role.IsAdmin())

	role, err = domain.ParseRole("vendor")
	require.NoError(t, err)
	assert.False(t, role.IsAdmin())

	_, err = domain.ParseRole("moderator")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestRoomKeys(t *testing.T) {
	assert.Equal(t, domain.Room("dispute:42"), domain.DisputeRoom(42))

	userID := uuid.New()
	assert.Equal(t, domain.Room("user:"+userID.String()), domain.UserRoom(userID))

	assert.Equal(t, domain.Room("disputes:monitoring"), domain.MonitoringRoom)
}

func TestValidateMessageBody(t *testing.T) {
	assert.NoError(t, domain.ValidateMessageBody("where is my refund"))
	assert.ErrorIs(t, domain.ValidateMessageBody(""), domain.ErrMessageBodyRequired)
	assert.ErrorIs(t, domain.ValidateMessageBody("   \n\t"), domain.ErrMessageBodyRequired)
	assert.ErrorIs(t, domain.ValidateMessageBody(strings.Repeat("a", 5000)), domain.ErrMessageBodyTooLong)
}

func TestPresenceEntry_Expired(t *testing.T) {
	now := time.Now()
	entry := domain.PresenceEntry{ExpiresAt: now.Add(3 * time.Second)}

	assert.False(t, entry.Expired(now))
	assert.False(t, entry.Expired(now.Add(2*time.Second)))
	assert.True(t, entry.Expired(now.Add(3*time.Second)))
	assert.True(t, entry.Expired(now.Add(time.Minute)))
}
