package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lorrc/dispute-live-backend/internal/core/domain"
	apperrors "github.com/lorrc/dispute-live-backend/internal/core/errors"
	"github.com/lorrc/dispute-live-backend/internal/core/ports"
)

// DisputeEventHandler is the internal webhook through which the marketplace
// application reports REST-driven dispute transitions. An admin resolving a
// dispute from a CRUD screen never touches a socket, yet connected clients
// and monitors must still see the change.
type DisputeEventHandler struct {
	statusSvc    ports.StatusService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewDisputeEventHandler creates a new dispute event handler.
func NewDisputeEventHandler(statusSvc ports.StatusService, errorHandler *ErrorHandler, logger *slog.Logger) *DisputeEventHandler {
	return &DisputeEventHandler{
		statusSvc:    statusSvc,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// RegisterRoutes registers the webhook routes.
func (h *DisputeEventHandler) RegisterRoutes(r chi.Router) {
	r.Post("/{disputeID}/events", h.HandleDisputeEvent)
}

// disputeEventRequest is the webhook body.
type disputeEventRequest struct {
	Type             string     `json:"type"` // status_changed | resolved | escalated
	Status           string     `json:"status,omitempty"`
	Resolution       string     `json:"resolution,omitempty"`
	ResolutionNotes  string     `json:"resolutionNotes,omitempty"`
	EscalationReason string     `json:"escalationReason,omitempty"`
	Actor            eventActor `json:"actor"`
	OccurredAt       *time.Time `json:"occurredAt"`
}

type eventActor struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
}

// HandleDisputeEvent fans a store-sourced transition out to the live rooms.
func (h *DisputeEventHandler) HandleDisputeEvent(w http.ResponseWriter, r *http.Request) {
	disputeID, err := strconv.ParseInt(chi.URLParam(r, "disputeID"), 10, 64)
	if err != nil || disputeID <= 0 {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid dispute ID"))
		return
	}

	var req disputeEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid request body"))
		return
	}

	actorRole, err := domain.ParseRole(req.Actor.Role)
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid actor role"))
		return
	}

	newStatus, err := h.resolveStatus(req)
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid event type or status"))
		return
	}

	// occurredAt seeds the activity dedupe key, so it must come from the
	// caller: a retried delivery stamped with the receive time would slip
	// past the dedupe window as a new logical event.
	if req.OccurredAt == nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "occurredAt is required"))
		return
	}
	occurredAt := req.OccurredAt.UTC()

	params := ports.StatusChangeParams{
		DisputeID: disputeID,
		NewStatus: newStatus,
		Actor: domain.Identity{
			UserID:      req.Actor.ID,
			DisplayName: req.Actor.DisplayName,
			Role:        actorRole,
		},
		Resolution:       req.Resolution,
		ResolutionNotes:  req.ResolutionNotes,
		EscalationReason: req.EscalationReason,
		OccurredAt:       occurredAt,
	}

	if err := h.statusSvc.ApplyStatusChange(r.Context(), params); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("dispute event fanned out",
		"request_id", GetRequestID(r.Context()),
		"dispute_id", disputeID,
		"event_type", req.Type,
		"status", newStatus,
	)

	WriteAccepted(w, "event broadcast")
}

// resolveStatus maps the webhook event type onto the dispute status it
// implies.
func (h *DisputeEventHandler) resolveStatus(req disputeEventRequest) (domain.DisputeStatus, error) {
	switch req.Type {
	case "resolved":
		return domain.DisputeResolved, nil
	case "escalated":
		return domain.DisputeEscalated, nil
	case "status_changed":
		return domain.ParseDisputeStatus(req.Status)
	default:
		return "", domain.ErrInvalidStatus
	}
}
