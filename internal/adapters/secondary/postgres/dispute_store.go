package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/dispute-live-backend/internal/core/domain"
	apperrors "github.com/lorrc/dispute-live-backend/internal/core/errors"
	"github.com/lorrc/dispute-live-backend/internal/core/ports"
	"github.com/lorrc/dispute-live-backend/internal/core/utils"
)

// DisputeStore is the secondary adapter for the marketplace's dispute
// database. It is the single source of truth: message ids and timestamps are
// assigned here, never by the relay.
type DisputeStore struct {
	pool *pgxpool.Pool
}

// Ensure DisputeStore implements the ports.DisputeStore interface.
var _ ports.DisputeStore = (*DisputeStore)(nil)

// NewDisputeStore creates a new dispute store adapter.
func NewDisputeStore(pool *pgxpool.Pool) *DisputeStore {
	return &DisputeStore{pool: pool}
}

// AppendMessage persists a message and returns the canonical copy. Terminal
// disputes reject the write; the relay checks this too, but the store is the
// authority. The status gate is folded into the INSERT itself, so a dispute
// resolved between an earlier read and this write still rejects the message.
func (s *DisputeStore) AppendMessage(ctx context.Context, params ports.AppendMessageParams) (*domain.DisputeMessage, error) {
	body := sanitizeBody(params.Body)

	var attachments []domain.Attachment
	if len(params.Attachments) > 0 {
		attachments = params.Attachments
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO dispute_messages (dispute_id, sender_id, sender_role, sender_display_name, body, attachments)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE EXISTS (
			SELECT 1 FROM disputes
			WHERE id = $1 AND status NOT IN ('resolved', 'closed')
		)
		RETURNING id, created_at`,
		params.DisputeID,
		pgtype.UUID{Bytes: params.SenderID, Valid: true},
		string(params.SenderRole),
		params.SenderDisplayName,
		body,
		attachments,
	)

	var (
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The gate refused the write: the dispute is terminal or absent.
			if _, statusErr := s.GetStatus(ctx, params.DisputeID); errors.Is(statusErr, apperrors.ErrDisputeNotFound) {
				return nil, apperrors.ErrDisputeNotFound
			}
			return nil, apperrors.ErrDisputeClosed
		}
		return nil, err
	}

	return &domain.DisputeMessage{
		ID:                id.Bytes,
		DisputeID:         params.DisputeID,
		SenderID:          params.SenderID,
		SenderRole:        params.SenderRole,
		SenderDisplayName: params.SenderDisplayName,
		Body:              body,
		Attachments:       attachments,
		CreatedAt:         createdAt.Time,
	}, nil
}

// GetDispute fetches the slice of dispute state the real-time layer needs.
func (s *DisputeStore) GetDispute(ctx context.Context, disputeID int64) (*domain.DisputeSummary, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, title, status, complainant_id, respondent_id
		FROM disputes
		WHERE id = $1`,
		disputeID,
	)

	var (
		summary       domain.DisputeSummary
		status        pgtype.Text
		complainantID pgtype.UUID
		respondentID  pgtype.UUID
	)
	if err := row.Scan(&summary.ID, &summary.Title, &status, &complainantID, &respondentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDisputeNotFound
		}
		return nil, err
	}

	parsed, err := domain.ParseDisputeStatus(utils.FromString(status))
	if err != nil {
		return nil, err
	}
	summary.Status = parsed

	if complainantID.Valid {
		summary.ComplainantID = complainantID.Bytes
	}
	if respondentID.Valid {
		summary.RespondentID = respondentID.Bytes
	}

	return &summary, nil
}

// GetStatus fetches only the lifecycle state of a dispute.
func (s *DisputeStore) GetStatus(ctx context.Context, disputeID int64) (domain.DisputeStatus, error) {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM disputes WHERE id = $1`, disputeID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrDisputeNotFound
		}
		return "", err
	}
	return domain.ParseDisputeStatus(status)
}

// IsAuthorizedParty reports whether the user is the complainant or the
// respondent of the dispute. Admin visibility is decided above this layer.
func (s *DisputeStore) IsAuthorizedParty(ctx context.Context, disputeID int64, userID uuid.UUID) (bool, error) {
	var authorized bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM disputes
			WHERE id = $1 AND (complainant_id = $2 OR respondent_id = $2)
		)`,
		disputeID,
		pgtype.UUID{Bytes: userID, Valid: true},
	).Scan(&authorized)
	if err != nil {
		return false, err
	}
	return authorized, nil
}

// UpdateStatus transitions a dispute. Used by integration tests and local
// tooling; in production the marketplace application owns dispute rows.
func (s *DisputeStore) UpdateStatus(ctx context.Context, disputeID int64, status domain.DisputeStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE disputes SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), disputeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDisputeNotFound
	}
	return nil
}

// Ping reports database connectivity for readiness probes.
func (s *DisputeStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// sanitizeBody strips control characters the UI layer would choke on. HTML
// escaping stays with the renderer; clients reconcile against this sanitized
// canonical copy.
func sanitizeBody(body string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(body))
}
