package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"surveypulse/internal/model"
	"surveypulse/internal/repository"
)

var (
	ErrInvalidSurvey      = errors.New("invalid survey")
	ErrInvalidCriteriaSet = errors.New("invalid criteria set")
	ErrCriteriaNotFound   = errors.New("criteria set not found")
)

// CriteriaInvalidator drops cached copies of a criteria set after an edit
type CriteriaInvalidator interface {
	Invalidate(ctx context.Context, set *model.CriteriaSet) error
}

// SurveyService handles survey, survey config and criteria set administration
type SurveyService struct {
	surveyRepo   repository.SurveyRepo
	configRepo   repository.SurveyConfigRepo
	criteriaRepo repository.CriteriaRepo
	invalidator  CriteriaInvalidator
}

// NewSurveyService creates a new survey service
func NewSurveyService(
	surveyRepo repository.SurveyRepo,
	configRepo repository.SurveyConfigRepo,
	criteriaRepo repository.CriteriaRepo,
	invalidator CriteriaInvalidator,
) *SurveyService {
	return &SurveyService{
		surveyRepo:   surveyRepo,
		configRepo:   configRepo,
		criteriaRepo: criteriaRepo,
		invalidator:  invalidator,
	}
}

// Create creates a new survey
func (s *SurveyService) Create(ctx context.Context, survey *model.Survey) (string, error) {
	if survey.Title == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidSurvey)
	}
	if survey.OwnerUserID == "" && survey.CreatorEmail == "" {
		return "", fmt.Errorf("%w: owner user id or creator email is required", ErrInvalidSurvey)
	}
	for i := range survey.Questions {
		if survey.Questions[i].ID == "" {
			survey.Questions[i].ID = survey.QuestionIDAt(i)
		}
	}
	return s.surveyRepo.Create(ctx, survey)
}

// GetByID retrieves a survey by ID
func (s *SurveyService) GetByID(ctx context.Context, id string) (*model.Survey, error) {
	survey, err := s.surveyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if survey == nil {
		return nil, ErrSurveyNotFound
	}
	return survey, nil
}

// GetByOwnerID retrieves all surveys of a creator
func (s *SurveyService) GetByOwnerID(ctx context.Context, ownerID string) ([]*model.Survey, error) {
	return s.surveyRepo.GetByOwnerID(ctx, ownerID)
}

// Delete deletes a survey
func (s *SurveyService) Delete(ctx context.Context, id string) error {
	return s.surveyRepo.Delete(ctx, id)
}

// GetConfig returns the survey's configuration, or the zero configuration
// (no pass/fail, no redirects) when none is stored.
func (s *SurveyService) GetConfig(ctx context.Context, surveyID string) (*model.SurveyConfig, error) {
	cfg, err := s.configRepo.GetBySurveyID(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return &model.SurveyConfig{SurveyID: surveyID}, nil
	}
	return cfg, nil
}

// SaveConfig replaces the survey's configuration
func (s *SurveyService) SaveConfig(ctx context.Context, cfg *model.SurveyConfig) error {
	if _, err := s.GetByID(ctx, cfg.SurveyID); err != nil {
		return err
	}
	if cfg.CriteriaSetID != "" {
		set, err := s.criteriaRepo.GetByID(ctx, cfg.CriteriaSetID)
		if err != nil {
			return err
		}
		if set == nil {
			return ErrCriteriaNotFound
		}
	}
	cfg.UpdatedAt = time.Now()
	return s.configRepo.Upsert(ctx, cfg)
}

// ListCriteria returns every stored criteria set
func (s *SurveyService) ListCriteria(ctx context.Context) ([]*model.CriteriaSet, error) {
	return s.criteriaRepo.List(ctx)
}

// CreateCriteria stores a new criteria set
func (s *SurveyService) CreateCriteria(ctx context.Context, set *model.CriteriaSet) (string, error) {
	if err := ValidateCriteriaSet(set); err != nil {
		return "", err
	}
	set.IsDynamic = false
	return s.criteriaRepo.Create(ctx, set)
}

// UpdateCriteria replaces a criteria set and drops its cached copies
func (s *SurveyService) UpdateCriteria(ctx context.Context, set *model.CriteriaSet) error {
	if err := ValidateCriteriaSet(set); err != nil {
		return err
	}
	existing, err := s.criteriaRepo.GetByID(ctx, set.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrCriteriaNotFound
	}
	set.IsDynamic = false
	if err := s.criteriaRepo.Update(ctx, set); err != nil {
		return err
	}
	// Evict under the old name too in case it was renamed.
	if err := s.invalidator.Invalidate(ctx, existing); err != nil {
		return err
	}
	return s.invalidator.Invalidate(ctx, set)
}

var knownConditions = map[model.Condition]bool{
	model.ConditionEquals:             true,
	model.ConditionNotEquals:          true,
	model.ConditionContains:           true,
	model.ConditionNotContains:        true,
	model.ConditionStartsWith:         true,
	model.ConditionEndsWith:           true,
	model.ConditionGreaterThan:        true,
	model.ConditionGreaterThanOrEqual: true,
	model.ConditionLessThan:           true,
	model.ConditionLessThanOrEqual:    true,
	model.ConditionInList:             true,
	model.ConditionNotInList:          true,
	model.ConditionRegexMatch:         true,
	model.ConditionLengthGreaterThan:  true,
	model.ConditionLengthLessThan:     true,
}

// ValidateCriteriaSet rejects sets the engine could only evaluate by
// falling back: unknown logic types or conditions, negative weights.
func ValidateCriteriaSet(set *model.CriteriaSet) error {
	if set.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCriteriaSet)
	}
	switch set.LogicType {
	case model.LogicAllRequired, model.LogicAnyRequired, model.LogicThresholdBased, model.LogicWeightedScore:
	default:
		return fmt.Errorf("%w: unknown logic type %q", ErrInvalidCriteriaSet, set.LogicType)
	}
	if set.PassingThreshold < 0 {
		return fmt.Errorf("%w: passing threshold must not be negative", ErrInvalidCriteriaSet)
	}
	if set.LogicType == model.LogicThresholdBased && set.PassingThreshold > 100 {
		return fmt.Errorf("%w: threshold_based threshold is a percentage", ErrInvalidCriteriaSet)
	}
	seen := make(map[string]bool, len(set.Criteria))
	for i, c := range set.Criteria {
		if c.ID == "" || c.QuestionID == "" {
			return fmt.Errorf("%w: criterion %d needs an id and a question id", ErrInvalidCriteriaSet, i)
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: duplicate criterion id %q", ErrInvalidCriteriaSet, c.ID)
		}
		seen[c.ID] = true
		if !knownConditions[c.Condition] {
			return fmt.Errorf("%w: criterion %q has unknown condition %q", ErrInvalidCriteriaSet, c.ID, c.Condition)
		}
		if c.Weight < 0 {
			return fmt.Errorf("%w: criterion %q has a negative weight", ErrInvalidCriteriaSet, c.ID)
		}
	}
	return nil
}
