package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpAdapter "github.com/lorrc/dispute-live-backend/internal/adapters/primary/http"
	"github.com/lorrc/dispute-live-backend/internal/core/domain"
	apperrors "github.com/lorrc/dispute-live-backend/internal/core/errors"
	"github.com/lorrc/dispute-live-backend/internal/core/mocks"
	"github.com/lorrc/dispute-live-backend/internal/core/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEventRouter(statusSvc ports.StatusService) chi.Router {
	handler := httpAdapter.NewDisputeEventHandler(statusSvc, httpAdapter.NewErrorHandler(testLogger()), testLogger())
	r := chi.NewRouter()
	r.Route("/internal/v1/disputes", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return r
}

func postEvent(t *testing.T, router chi.Router, disputeID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/internal/v1/disputes/"+disputeID+"/events", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestDisputeEventHandler_HandleDisputeEvent(t *testing.T) {
	actor := map[string]any{
		"id":          uuid.New().String(),
		"displayName": "Admin Annie",
		"role":        "admin",
	}

	t.Run("resolved event is accepted and fanned out", func(t *testing.T) {
		statusSvc := mocks.NewMockStatusService()
		occurredAt := time.Now().UTC().Truncate(time.Millisecond)

		statusSvc.On("ApplyStatusChange", mock.Anything, mock.MatchedBy(func(p ports.StatusChangeParams) bool {
			return p.DisputeID == 42 &&
				p.NewStatus == domain.DisputeResolved &&
				p.Resolution == "refund_buyer" &&
				p.OccurredAt.Equal(occurredAt)
		})).Return(nil)

		rec := postEvent(t, newEventRouter(statusSvc), "42", map[string]any{
			"type":       "resolved",
			"resolution": "refund_buyer",
			"actor":      actor,
			"occurredAt": occurredAt.Format(time.RFC3339Nano),
		})

		assert.Equal(t, http.StatusAccepted, rec.Code)
		statusSvc.AssertExpectations(t)
	})

	t.Run("status_changed event parses the target status", func(t *testing.T) {
		statusSvc := mocks.NewMockStatusService()
		statusSvc.On("ApplyStatusChange", mock.Anything, mock.MatchedBy(func(p ports.StatusChangeParams) bool {
			return p.NewStatus == domain.DisputeUnderReview
		})).Return(nil)

		rec := postEvent(t, newEventRouter(statusSvc), "42", map[string]any{
			"type":       "status_changed",
			"status":     "under_review",
			"actor":      actor,
			"occurredAt": time.Now().UTC().Format(time.RFC3339Nano),
		})

		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("missing occurredAt is rejected", func(t *testing.T) {
		statusSvc := mocks.NewMockStatusService()

		// Without a caller-supplied timestamp a redelivery would dodge the
		// activity dedupe window.
		rec := postEvent(t, newEventRouter(statusSvc), "42", map[string]any{
			"type":       "resolved",
			"resolution": "refund_buyer",
			"actor":      actor,
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		statusSvc.AssertNotCalled(t, "ApplyStatusChange")
	})

	t.Run("unknown event type is a validation error", func(t *testing.T) {
		statusSvc := mocks.NewMockStatusService()

		rec := postEvent(t, newEventRouter(statusSvc), "42", map[string]any{
			"type":  "reopened",
			"actor": actor,
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		statusSvc.AssertNotCalled(t, "ApplyStatusChange")
	})

	t.Run("invalid actor role is rejected", func(t *testing.T) {
		statusSvc := mocks.NewMockStatusService()

		rec := postEvent(t, newEventRouter(statusSvc), "42", map[string]any{
			"type": "resolved",
			"actor": map[string]any{
				"id":          uuid.New().String(),
				"displayName": "Nobody",
				"role":        "superuser",
			},
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		statusSvc.AssertNotCalled(t, "ApplyStatusChange")
	})

	t.Run("non-numeric dispute id is rejected", func(t *testing.T) {
		statusSvc := mocks.NewMockStatusService()

		rec := postEvent(t, newEventRouter(statusSvc), "not-a-number", map[string]any{
			"type":  "resolved",
			"actor": actor,
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown dispute maps to 404", func(t *testing.T) {
		statusSvc := mocks.NewMockStatusService()
		statusSvc.On("ApplyStatusChange", mock.Anything, mock.Anything).Return(apperrors.ErrDisputeNotFound)

		rec := postEvent(t, newEventRouter(statusSvc), "99", map[string]any{
			"type":       "resolved",
			"actor":      actor,
			"occurredAt": time.Now().UTC().Format(time.RFC3339Nano),
		})

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "DISPUTE_NOT_FOUND", body["code"])
	})

	t.Run("impossible transition maps to 400", func(t *testing.T) {
		statusSvc := mocks.NewMockStatusService()
		statusSvc.On("ApplyStatusChange", mock.Anything, mock.Anything).Return(domain.ErrInvalidStatusTransition)

		rec := postEvent(t, newEventRouter(statusSvc), "42", map[string]any{
			"type":       "resolved",
			"actor":      actor,
			"occurredAt": time.Now().UTC().Format(time.RFC3339Nano),
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
