package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"surveypulse/internal/logger"
	"surveypulse/internal/model"
	"surveypulse/internal/service"
)

// SurveyHandler handles survey, survey config and criteria set endpoints
type SurveyHandler struct {
	surveySvc *service.SurveyService
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(surveySvc *service.SurveyService) *SurveyHandler {
	return &SurveyHandler{surveySvc: surveySvc}
}

// CreateSurveyRequest is the request body for creating a survey
type CreateSurveyRequest struct {
	OwnerUserID  string           `json:"ownerUserId"`
	CreatorEmail string           `json:"creatorEmail"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Questions    []model.Question `json:"questions"`
}

// Create handles POST /v1/surveys
func (h *SurveyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSurveyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	survey := &model.Survey{
		OwnerUserID:  req.OwnerUserID,
		CreatorEmail: req.CreatorEmail,
		Title:        req.Title,
		Description:  req.Description,
		Questions:    req.Questions,
	}

	id, err := h.surveySvc.Create(r.Context(), survey)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"surveyId": id})
}

// Get handles GET /v1/surveys/{surveyId}
func (h *SurveyHandler) Get(w http.ResponseWriter, r *http.Request) {
	survey, err := h.surveySvc.GetByID(r.Context(), mux.Vars(r)["surveyId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, survey)
}

// List handles GET /v1/surveys?ownerId=
func (h *SurveyHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("ownerId")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "ownerId is required")
		return
	}

	surveys, err := h.surveySvc.GetByOwnerID(r.Context(), ownerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if surveys == nil {
		surveys = []*model.Survey{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"surveys": surveys})
}

// Delete handles DELETE /v1/surveys/{surveyId}
func (h *SurveyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.surveySvc.Delete(r.Context(), mux.Vars(r)["surveyId"]); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetConfig handles GET /v1/surveys/{surveyId}/config
func (h *SurveyHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.surveySvc.GetConfig(r.Context(), mux.Vars(r)["surveyId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// PutConfig handles PUT /v1/surveys/{surveyId}/config
func (h *SurveyHandler) PutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg model.SurveyConfig
	if err := decodeJSON(w, r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cfg.SurveyID = mux.Vars(r)["surveyId"]

	if err := h.surveySvc.SaveConfig(r.Context(), &cfg); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// ListCriteria handles GET /v1/criteria-sets
func (h *SurveyHandler) ListCriteria(w http.ResponseWriter, r *http.Request) {
	sets, err := h.surveySvc.ListCriteria(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if sets == nil {
		sets = []*model.CriteriaSet{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"criteriaSets": sets})
}

// CreateCriteria handles POST /v1/criteria-sets
func (h *SurveyHandler) CreateCriteria(w http.ResponseWriter, r *http.Request) {
	var set model.CriteriaSet
	if err := decodeJSON(w, r, &set); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	set.ID = ""

	id, err := h.surveySvc.CreateCriteria(r.Context(), &set)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"criteriaSetId": id})
}

// UpdateCriteria handles PUT /v1/criteria-sets/{criteriaSetId}
func (h *SurveyHandler) UpdateCriteria(w http.ResponseWriter, r *http.Request) {
	var set model.CriteriaSet
	if err := decodeJSON(w, r, &set); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	set.ID = mux.Vars(r)["criteriaSetId"]

	if err := h.surveySvc.UpdateCriteria(r.Context(), &set); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, set)
}

func (h *SurveyHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrSurveyNotFound), errors.Is(err, service.ErrCriteriaNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidSurvey), errors.Is(err, service.ErrInvalidCriteriaSet):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.FromContext(r.Context()).Error("survey operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
