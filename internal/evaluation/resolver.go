package evaluation

import (
	"context"
	"fmt"
	"log/slog"

	"surveypulse/internal/model"
)

// Source records where a resolved criteria set came from.
type Source string

const (
	SourceNone         Source = ""
	SourceExplicit     Source = "explicit"
	SourceSurveyConfig Source = "survey_config"
	SourceSynthesized  Source = "synthesized"
	SourceDefault      Source = "default"
)

// CriteriaStore reads stored criteria sets. Not-found is (nil, nil).
type CriteriaStore interface {
	GetByID(ctx context.Context, id string) (*model.CriteriaSet, error)
	GetByName(ctx context.Context, name string) (*model.CriteriaSet, error)
}

// SurveyStore reads surveys. Not-found is (nil, nil).
type SurveyStore interface {
	GetByID(ctx context.Context, id string) (*model.Survey, error)
}

// ConfigStore reads per-survey configuration. Not-found is (nil, nil).
type ConfigStore interface {
	GetBySurveyID(ctx context.Context, surveyID string) (*model.SurveyConfig, error)
}

// Resolver picks the criteria set to apply to a survey, first match wins:
// explicit id, the survey's configured set, a set synthesized from the
// survey's questions, the global default by name.
type Resolver struct {
	criteria    CriteriaStore
	surveys     SurveyStore
	configs     ConfigStore
	defaultName string
	logger      *slog.Logger
}

// NewResolver creates a Resolver. defaultName may be empty to disable the global fallback.
func NewResolver(criteria CriteriaStore, surveys SurveyStore, configs ConfigStore, defaultName string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		criteria:    criteria,
		surveys:     surveys,
		configs:     configs,
		defaultName: defaultName,
		logger:      logger,
	}
}

// Resolve returns (nil, SourceNone, nil) when nothing applies; callers treat
// that as evaluation-unavailable rather than a pass or a fail.
func (r *Resolver) Resolve(ctx context.Context, surveyID, explicitID string) (*model.CriteriaSet, Source, error) {
	if explicitID != "" {
		set, err := r.criteria.GetByID(ctx, explicitID)
		if err != nil {
			return nil, SourceNone, fmt.Errorf("load criteria set %s: %w", explicitID, err)
		}
		if usable(set) {
			return set, SourceExplicit, nil
		}
		r.logger.Info("explicit criteria set missing or inactive", "criteria_set_id", explicitID, "survey_id", surveyID)
	}

	cfg, err := r.configs.GetBySurveyID(ctx, surveyID)
	if err != nil {
		return nil, SourceNone, fmt.Errorf("load survey config %s: %w", surveyID, err)
	}
	if cfg != nil && cfg.CriteriaSetID != "" && cfg.CriteriaSetID != explicitID {
		set, err := r.criteria.GetByID(ctx, cfg.CriteriaSetID)
		if err != nil {
			return nil, SourceNone, fmt.Errorf("load criteria set %s: %w", cfg.CriteriaSetID, err)
		}
		if usable(set) {
			return set, SourceSurveyConfig, nil
		}
	}

	survey, err := r.surveys.GetByID(ctx, surveyID)
	if err != nil {
		return nil, SourceNone, fmt.Errorf("load survey %s: %w", surveyID, err)
	}
	if set := SynthesizeCriteria(survey); set != nil {
		r.logger.Debug("using synthesized criteria set", "survey_id", surveyID, "criteria", len(set.Criteria))
		return set, SourceSynthesized, nil
	}

	if r.defaultName != "" {
		set, err := r.criteria.GetByName(ctx, r.defaultName)
		if err != nil {
			return nil, SourceNone, fmt.Errorf("load default criteria set %q: %w", r.defaultName, err)
		}
		if usable(set) {
			return set, SourceDefault, nil
		}
	}

	return nil, SourceNone, nil
}

func usable(set *model.CriteriaSet) bool {
	return set != nil && set.IsActive
}
