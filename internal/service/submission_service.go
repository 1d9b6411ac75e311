package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"surveypulse/internal/config"
	"surveypulse/internal/model"
	"surveypulse/internal/postback"
)

var (
	ErrSurveyNotFound = errors.New("survey not found")
	ErrEmptyResponse  = errors.New("response contains no answers")
)

// Evaluator produces a verdict for one submission. It never fails.
type Evaluator interface {
	Evaluate(ctx context.Context, surveyID string, responses map[string]any, criteriaSetID string) model.EvaluationResult
}

// Dispatcher notifies every postback recipient of a completion.
type Dispatcher interface {
	Dispatch(ctx context.Context, surveyID string, completion *model.CompletionData) postback.DispatchResult
}

// SurveyReader reads surveys. Not-found is (nil, nil).
type SurveyReader interface {
	GetByID(ctx context.Context, id string) (*model.Survey, error)
}

// ResponseWriter persists submissions and their outcome.
type ResponseWriter interface {
	Create(ctx context.Context, response *model.SurveyResponse) error
	AttachOutcome(ctx context.Context, id string, evaluation *model.EvaluationResult, redirect *model.RedirectOutcome) error
}

// SettingsReader takes a snapshot of the system settings.
type SettingsReader interface {
	Snapshot(ctx context.Context) (model.SystemConfig, error)
}

// SubmitRequest is one public form submission
type SubmitRequest struct {
	SurveyID      string
	SessionID     string
	UserInfo      model.UserInfo
	Responses     map[string]any
	CriteriaSetID string
	IPAddress     string
	UserAgent     string
}

// SubmitResult is what the respondent's client gets back
type SubmitResult struct {
	ResponseID string                   `json:"responseId"`
	SessionID  string                   `json:"sessionId"`
	Evaluation model.EvaluationResult   `json:"evaluation"`
	Redirect   model.RedirectOutcome    `json:"redirect"`
	Postbacks  *postback.DispatchResult `json:"postbacks,omitempty"` // Only when dispatch runs inline
}

// SubmissionService runs a submission through evaluation, redirect and postbacks
type SubmissionService struct {
	surveys    SurveyReader
	responses  ResponseWriter
	configs    ConfigReader
	settings   SettingsReader
	offers     OfferReader
	evaluator  Evaluator
	redirects  *RedirectService
	dispatcher Dispatcher
	cfg        config.PostbackConfig
	logger     *slog.Logger
	now        func() time.Time
	// wait lets tests observe detached dispatches
	wait func()
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(
	surveys SurveyReader,
	responses ResponseWriter,
	configs ConfigReader,
	settings SettingsReader,
	offers OfferReader,
	evaluator Evaluator,
	redirects *RedirectService,
	dispatcher Dispatcher,
	cfg config.PostbackConfig,
	logger *slog.Logger,
) *SubmissionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionService{
		surveys:    surveys,
		responses:  responses,
		configs:    configs,
		settings:   settings,
		offers:     offers,
		evaluator:  evaluator,
		redirects:  redirects,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		wait:       func() {},
	}
}

// Submit stores the response, evaluates it, decides the redirect and fires
// postbacks. Only a missing survey or an unusable request is an error;
// everything downstream degrades instead of failing the respondent.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	survey, err := s.surveys.GetByID(ctx, req.SurveyID)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, ErrSurveyNotFound
	}

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	response := &model.SurveyResponse{
		SurveyID:    survey.ID,
		SessionID:   req.SessionID,
		UserInfo:    req.UserInfo,
		Responses:   req.Responses,
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
		SubmittedAt: s.now(),
	}
	if !response.HasAnswers() {
		return nil, ErrEmptyResponse
	}
	if err := s.responses.Create(ctx, response); err != nil {
		return nil, err
	}

	log := s.logger.With("survey_id", survey.ID, "response_id", response.ID, "session_id", req.SessionID)

	cfg, err := s.configs.GetBySurveyID(ctx, survey.ID)
	if err != nil {
		log.Error("survey config lookup failed", "error", err)
		cfg = nil
	}

	evaluation := s.evaluate(ctx, survey.ID, cfg, req)

	sys, err := s.settings.Snapshot(ctx)
	if err != nil {
		// Without the kill switch value, err on the side of no partner redirect.
		log.Error("system settings lookup failed", "error", err)
		sys = model.SystemConfig{MergeEnabled: false}
	}

	redirect := s.redirects.Resolve(ctx, survey.ID, &evaluation, sys, req.UserInfo, req.SessionID)
	if err := s.responses.AttachOutcome(ctx, response.ID, &evaluation, &redirect); err != nil {
		log.Error("failed to store submission outcome", "error", err)
	}

	log.Info("submission evaluated",
		"status", evaluation.Status,
		"score", evaluation.Score,
		"redirect_type", redirect.Decision.RedirectType,
	)

	result := &SubmitResult{
		ResponseID: response.ID,
		SessionID:  req.SessionID,
		Evaluation: evaluation,
		Redirect:   redirect,
	}

	completion := s.completion(ctx, survey, response, &evaluation, cfg)
	if s.cfg.AsyncDispatch {
		s.dispatchDetached(ctx, survey.ID, completion)
	} else {
		dispatch := s.dispatcher.Dispatch(ctx, survey.ID, completion)
		result.Postbacks = &dispatch
	}

	return result, nil
}

func (s *SubmissionService) evaluate(ctx context.Context, surveyID string, cfg *model.SurveyConfig, req SubmitRequest) model.EvaluationResult {
	if cfg != nil && !cfg.PassFailEnabled {
		return model.EvaluationResult{
			Status:         model.EvaluationPass,
			Score:          100,
			CriteriaMet:    []string{},
			CriteriaFailed: []string{},
			Details:        model.EvaluationDetails{Message: "pass/fail evaluation disabled for survey"},
		}
	}
	// The resolver falls back to the configured set itself.
	return s.evaluator.Evaluate(ctx, surveyID, req.Responses, req.CriteriaSetID)
}

func (s *SubmissionService) completion(ctx context.Context, survey *model.Survey, response *model.SurveyResponse, evaluation *model.EvaluationResult, cfg *model.SurveyConfig) *model.CompletionData {
	c := &model.CompletionData{
		SurveyID:    survey.ID,
		SurveyTitle: survey.Title,
		ResponseID:  response.ID,
		SessionID:   response.SessionID,
		UserInfo:    response.UserInfo,
		Responses:   response.Responses,
		Evaluation:  evaluation,
		IPAddress:   response.IPAddress,
		UserAgent:   response.UserAgent,
		CompletedAt: response.SubmittedAt,
	}
	if cfg == nil || cfg.PepperAdsOfferID == "" {
		return c
	}

	offer, err := s.offers.GetByID(ctx, cfg.PepperAdsOfferID)
	if err != nil {
		s.logger.Warn("offer lookup failed, postbacks carry no payout", "offer_id", cfg.PepperAdsOfferID, "error", err)
		return c
	}
	if offer != nil {
		c.OfferID = offer.ID
		c.Payout = offer.Payout
		c.Currency = offer.Currency
	}
	return c
}

// dispatchDetached keeps delivering after the request returns, bounded by
// DispatchTimeout instead of the request's lifetime.
func (s *SubmissionService) dispatchDetached(ctx context.Context, surveyID string, completion *model.CompletionData) {
	dctx := context.WithoutCancel(ctx)
	go func() {
		defer s.wait()
		if s.cfg.DispatchTimeout > 0 {
			var cancel context.CancelFunc
			dctx, cancel = context.WithTimeout(dctx, s.cfg.DispatchTimeout)
			defer cancel()
		}
		res := s.dispatcher.Dispatch(dctx, surveyID, completion)
		s.logger.Info("postbacks dispatched",
			"survey_id", surveyID,
			"total", res.TotalSent,
			"successful", res.Successful,
			"failed", res.Failed,
		)
	}()
}
