package service

import (
	"context"
	"log/slog"

	"surveypulse/internal/model"
	"surveypulse/internal/postback"
)

// Redirect decision reasons
const (
	ReasonFailedEvaluation = "failed evaluation"
	ReasonMergeDisabled    = "partner redirects disabled globally"
	ReasonSurveyDisabled   = "partner redirect disabled for survey"
	ReasonPassedEvaluation = "passed evaluation"
	ReasonOfferUnavailable = "partner offer unavailable"
	ReasonDynamicRedirect  = "dynamic redirect configured"
)

// ConfigReader reads per-survey configuration. Not-found is (nil, nil).
type ConfigReader interface {
	GetBySurveyID(ctx context.Context, surveyID string) (*model.SurveyConfig, error)
}

// OfferReader reads partner offers. Not-found is (nil, nil).
type OfferReader interface {
	GetByID(ctx context.Context, id string) (*model.Offer, error)
}

// RedirectService decides where a respondent goes after submitting
type RedirectService struct {
	configs ConfigReader
	offers  OfferReader
	logger  *slog.Logger
}

// NewRedirectService creates a new redirect service
func NewRedirectService(configs ConfigReader, offers OfferReader, logger *slog.Logger) *RedirectService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedirectService{configs: configs, offers: offers, logger: logger}
}

// Decide applies, in order: verdict, global switch, survey toggle.
func (s *RedirectService) Decide(ctx context.Context, surveyID string, result *model.EvaluationResult, sys model.SystemConfig) model.RedirectDecision {
	return decide(s.loadConfig(ctx, surveyID), result, sys)
}

// Resolve computes the full outcome for a submission. A configured dynamic
// template overrides the decision and is returned with its placeholders
// untouched; the client fills them in. Otherwise a redirect renders the
// partner offer, and anything else falls back to the fail page.
func (s *RedirectService) Resolve(ctx context.Context, surveyID string, result *model.EvaluationResult, sys model.SystemConfig, user model.UserInfo, sessionID string) model.RedirectOutcome {
	cfg := s.loadConfig(ctx, surveyID)
	outcome := model.RedirectOutcome{Decision: decide(cfg, result, sys)}

	if cfg != nil && cfg.DynamicRedirectEnabled {
		template := cfg.DynamicRedirectConfig.FailRedirectURL
		if result.Passed() {
			template = cfg.DynamicRedirectConfig.PassRedirectURL
		}
		if template != "" {
			outcome.DynamicTemplate = template
			outcome.Decision = model.RedirectDecision{
				ShouldRedirect: true,
				Reason:         ReasonDynamicRedirect,
				RedirectType:   model.RedirectDynamic,
			}
			return outcome
		}
	}

	if outcome.Decision.ShouldRedirect {
		offer, err := s.buildRedirectURL(ctx, cfg, surveyID, user, sessionID)
		if err != nil {
			s.logger.Error("failed to build offer redirect", "survey_id", surveyID, "error", err)
		}
		if offer != nil {
			outcome.Offer = offer
			return outcome
		}
		outcome.Decision = model.RedirectDecision{
			ShouldRedirect: false,
			Reason:         ReasonOfferUnavailable,
			RedirectType:   model.RedirectThankYouPage,
		}
	}

	if cfg != nil {
		page := cfg.FailPageConfig
		outcome.FailPage = &page
	}
	return outcome
}

// BuildRedirectURL renders the survey's configured partner offer for one
// respondent. It returns nil when no active offer is configured.
func (s *RedirectService) BuildRedirectURL(ctx context.Context, surveyID string, user model.UserInfo, sessionID string) (*model.RedirectURL, error) {
	return s.buildRedirectURL(ctx, s.loadConfig(ctx, surveyID), surveyID, user, sessionID)
}

func (s *RedirectService) buildRedirectURL(ctx context.Context, cfg *model.SurveyConfig, surveyID string, user model.UserInfo, sessionID string) (*model.RedirectURL, error) {
	if cfg == nil || cfg.PepperAdsOfferID == "" {
		return nil, nil
	}
	offer, err := s.offers.GetByID(ctx, cfg.PepperAdsOfferID)
	if err != nil {
		return nil, err
	}
	if offer == nil || offer.Status != model.StatusActive || offer.BaseURL == "" {
		return nil, nil
	}

	sub1 := user.Sub1
	if sub1 == "" {
		sub1 = surveyID
	}
	sub2 := user.Sub2
	if sub2 == "" {
		sub2 = sessionID
	}
	data := postback.Data{
		postback.FieldClickID:   user.ClickID,
		postback.FieldOfferID:   offer.ID,
		postback.FieldPayout:    offer.Payout,
		postback.FieldCurrency:  offer.Currency,
		postback.FieldSub1:      sub1,
		postback.FieldSub2:      sub2,
		postback.FieldSurveyID:  surveyID,
		postback.FieldSessionID: sessionID,
		postback.FieldUserID:    user.UserID,
		postback.FieldUsername:  user.Username,
		postback.FieldEmail:     user.Email,
	}

	mapping := offer.ParameterMappings
	if len(mapping) == 0 {
		mapping = map[string]string{postback.FieldSub1: postback.FieldSub1, postback.FieldSub2: postback.FieldSub2}
	}
	rendered := postback.Render(offer.BaseURL, mapping, data, model.MethodGET)
	if len(rendered.Missing) > 0 {
		s.logger.Warn("offer url placeholders left unresolved", "offer_id", offer.ID, "placeholders", rendered.Missing)
	}

	return &model.RedirectURL{
		RedirectURL:    rendered.URL,
		OfferName:      offer.Name,
		ParametersUsed: rendered.Params,
	}, nil
}

// loadConfig treats a lookup failure as "no configuration" so the
// respondent always gets an answer.
func (s *RedirectService) loadConfig(ctx context.Context, surveyID string) *model.SurveyConfig {
	cfg, err := s.configs.GetBySurveyID(ctx, surveyID)
	if err != nil {
		s.logger.Error("survey config lookup failed", "survey_id", surveyID, "error", err)
		return nil
	}
	return cfg
}

func decide(cfg *model.SurveyConfig, result *model.EvaluationResult, sys model.SystemConfig) model.RedirectDecision {
	switch {
	case !result.Passed():
		return model.RedirectDecision{Reason: ReasonFailedEvaluation, RedirectType: model.RedirectFailPage}
	case !sys.MergeEnabled:
		return model.RedirectDecision{Reason: ReasonMergeDisabled, RedirectType: model.RedirectThankYouPage}
	case cfg == nil || !cfg.PepperAdsRedirectEnabled:
		return model.RedirectDecision{Reason: ReasonSurveyDisabled, RedirectType: model.RedirectThankYouPage}
	}
	return model.RedirectDecision{ShouldRedirect: true, Reason: ReasonPassedEvaluation, RedirectType: model.RedirectPepperAds}
}
