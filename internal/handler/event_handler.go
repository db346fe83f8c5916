package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
)

// EventHandler holds the HTTP handlers of the event service.
type EventHandler struct {
	svc *service.EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// Routes mounts the event service API on r.
func (h *EventHandler) Routes(r chi.Router) {
	r.Post("/users/{userId}/events", h.CreateEvent)
	r.Get("/events/{eventId}", h.GetEvent)
	r.Patch("/admin/events/{eventId}", h.UpdateEventByAdmin)
	r.Route("/internal/events/{eventId}", func(r chi.Router) {
		r.Get("/snapshot", h.GetSnapshot)
		r.Post("/confirmed", h.AdjustConfirmed)
	})
}

// CreateEvent handles POST /users/{userId}/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req model.NewEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// GetEvent handles GET /events/{eventId}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.svc.GetEvent(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// UpdateEventByAdmin handles PATCH /admin/events/{eventId}
// Publishes or rejects a pending event.
func (h *EventHandler) UpdateEventByAdmin(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req model.UpdateEventAdminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.UpdateEventByAdmin(r.Context(), eventID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// GetSnapshot handles GET /internal/events/{eventId}/snapshot
func (h *EventHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.svc.Snapshot(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// AdjustConfirmed handles POST /internal/events/{eventId}/confirmed
// A delta that would leave [0, participantLimit] answers 409.
func (h *EventHandler) AdjustConfirmed(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req model.AdjustConfirmedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	confirmed, err := h.svc.AdjustConfirmed(r.Context(), eventID, req.Delta)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.AdjustConfirmedResponse{ConfirmedRequests: confirmed})
}
