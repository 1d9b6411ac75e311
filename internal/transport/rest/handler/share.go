package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"surveypulse/internal/logger"
	"surveypulse/internal/service"
)

// ShareHandler manages inbound postback shares
type ShareHandler struct {
	shareSvc *service.ShareService
}

// NewShareHandler creates a new share handler
func NewShareHandler(shareSvc *service.ShareService) *ShareHandler {
	return &ShareHandler{shareSvc: shareSvc}
}

// Create handles POST /v1/shares
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateShareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	share, err := h.shareSvc.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, share)
}

// List handles GET /v1/shares
func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	shares, err := h.shareSvc.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"shares": shares})
}

// Get handles GET /v1/shares/{uniqueId}
func (h *ShareHandler) Get(w http.ResponseWriter, r *http.Request) {
	share, err := h.shareSvc.Get(r.Context(), mux.Vars(r)["uniqueId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, share)
}

// Revoke handles POST /v1/shares/{uniqueId}/revoke
func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// Activate handles POST /v1/shares/{uniqueId}/activate
func (h *ShareHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *ShareHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	share, err := h.shareSvc.SetActive(r.Context(), mux.Vars(r)["uniqueId"], active)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, share)
}

func (h *ShareHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrShareNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidShare), errors.Is(err, service.ErrUnknownParameter):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.FromContext(r.Context()).Error("share operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
