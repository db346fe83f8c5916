package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
)

// RequestHandler holds the HTTP handlers of the request service.
type RequestHandler struct {
	svc *service.RequestService
}

// NewRequestHandler constructs a RequestHandler.
func NewRequestHandler(svc *service.RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

// Routes mounts the participation request API on r.
func (h *RequestHandler) Routes(r chi.Router) {
	r.Route("/users/{userId}", func(r chi.Router) {
		r.Get("/requests", h.ListUserRequests)
		r.Post("/requests", h.CreateRequest)
		r.Patch("/requests/{requestId}/cancel", h.CancelRequest)
		r.Get("/events/{eventId}/requests", h.ListEventRequests)
		r.Patch("/events/{eventId}/requests", h.ApproveRequests)
	})
}

// ListUserRequests handles GET /users/{userId}/requests
func (h *RequestHandler) ListUserRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reqs, err := h.svc.ListUserRequests(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

// CreateRequest handles POST /users/{userId}/requests?eventId=
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	eventID, err := parseID(r.URL.Query().Get("eventId"), "eventId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := h.svc.CreateParticipationRequest(r.Context(), userID, eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// CancelRequest handles PATCH /users/{userId}/requests/{requestId}/cancel
func (h *RequestHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	requestID, err := pathID(r, "requestId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := h.svc.CancelParticipationRequest(r.Context(), userID, requestID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ListEventRequests handles GET /users/{userId}/events/{eventId}/requests
func (h *RequestHandler) ListEventRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	eventID, err := pathID(r, "eventId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reqs, err := h.svc.ListEventRequests(r.Context(), userID, eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

// ApproveRequests handles PATCH /users/{userId}/events/{eventId}/requests
// Slots are granted in the order of requestIds.
func (h *RequestHandler) ApproveRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	eventID, err := pathID(r, "eventId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var upd model.StatusUpdateRequest
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.ApproveRequests(r.Context(), userID, eventID, upd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
