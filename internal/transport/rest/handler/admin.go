package handler

import (
	"net/http"
	"strconv"

	"surveypulse/internal/logger"
	"surveypulse/internal/model"
	"surveypulse/internal/repository"
	"surveypulse/internal/service"
)

// AdminHandler exposes system settings and the postback audit trail
type AdminHandler struct {
	adminSvc *service.AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminSvc *service.AdminService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc}
}

// SettingsRequest is the request body for updating system settings
type SettingsRequest struct {
	MergeEnabled *bool `json:"mergeEnabled"`
}

// GetSettings handles GET /v1/settings
func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.adminSvc.Settings(r.Context())
	if err != nil {
		h.internal(w, r, "settings lookup failed", err)
		return
	}

	writeJSON(w, http.StatusOK, settingsView(settings))
}

// UpdateSettings handles PUT /v1/settings
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := decodeJSON(w, r, &req); err != nil || req.MergeEnabled == nil {
		writeError(w, http.StatusBadRequest, "mergeEnabled is required")
		return
	}

	settings, err := h.adminSvc.SetMergeEnabled(r.Context(), *req.MergeEnabled)
	if err != nil {
		h.internal(w, r, "settings update failed", err)
		return
	}

	writeJSON(w, http.StatusOK, settingsView(settings))
}

// AuditLog handles GET /v1/postbacks/logs?type=&surveyId=&shareId=&status=&limit=
func (h *AdminHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.AuditFilter{
		Type:     model.AuditType(q.Get("type")),
		SurveyID: q.Get("surveyId"),
		ShareID:  q.Get("shareId"),
		Status:   model.AuditStatus(q.Get("status")),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	entries, err := h.adminSvc.AuditLog(r.Context(), filter)
	if err != nil {
		h.internal(w, r, "audit listing failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": entries})
}

// Stats handles GET /v1/postbacks/stats?surveyId=|shareId=
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := h.adminSvc.Stats(r.Context(), q.Get("surveyId"), q.Get("shareId"))
	if err != nil {
		h.internal(w, r, "stats lookup failed", err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) internal(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.FromContext(r.Context()).Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func settingsView(s model.SystemConfig) map[string]bool {
	return map[string]bool{"mergeEnabled": s.MergeEnabled}
}
