package handler

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"surveypulse/internal/logger"
	"surveypulse/internal/model"
	"surveypulse/internal/service"
)

// SubmissionHandler handles public survey submissions
type SubmissionHandler struct {
	submissionSvc *service.SubmissionService
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(submissionSvc *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionSvc: submissionSvc}
}

// SubmitRequest is the request body for a survey submission
type SubmitRequest struct {
	SessionID     string         `json:"sessionId"`
	UserInfo      model.UserInfo `json:"userInfo"`
	Responses     map[string]any `json:"responses"`
	CriteriaSetID string         `json:"criteriaSetId"`
}

// Submit handles POST /v1/surveys/{surveyId}/responses
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	surveyID := mux.Vars(r)["surveyId"]

	var req SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.submissionSvc.Submit(r.Context(), service.SubmitRequest{
		SurveyID:      surveyID,
		SessionID:     req.SessionID,
		UserInfo:      req.UserInfo,
		Responses:     req.Responses,
		CriteriaSetID: req.CriteriaSetID,
		IPAddress:     clientIP(r),
		UserAgent:     r.UserAgent(),
	})
	switch {
	case errors.Is(err, service.ErrSurveyNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, service.ErrEmptyResponse):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		logger.FromContext(r.Context()).Error("submission failed", "survey_id", surveyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store response")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// clientIP prefers the first X-Forwarded-For hop over the socket address
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
