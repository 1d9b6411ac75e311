package evaluation

import (
	"context"
	"fmt"
	"log/slog"

	"surveypulse/internal/model"
	"surveypulse/internal/observability"
)

// CriteriaResolver resolves the criteria set for a survey.
type CriteriaResolver interface {
	Resolve(ctx context.Context, surveyID, explicitID string) (*model.CriteriaSet, Source, error)
}

// Engine evaluates a response against its resolved criteria set.
type Engine struct {
	resolver  CriteriaResolver
	criterion *CriterionEvaluator
	logger    *slog.Logger
}

// NewEngine creates an Engine. A nil logger means slog.Default().
func NewEngine(resolver CriteriaResolver, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		resolver:  resolver,
		criterion: NewCriterionEvaluator(logger),
		logger:    logger,
	}
}

// Evaluate resolves the criteria set and scores responses against it.
// Failures are reported as status=error, never returned or panicked.
func (e *Engine) Evaluate(ctx context.Context, surveyID string, responses map[string]any, criteriaSetID string) (result model.EvaluationResult) {
	source := SourceNone
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("evaluation panicked", "survey_id", surveyID, "panic", r)
			result = errorResult(fmt.Sprintf("evaluation error: %v", r))
		}
		observability.EvaluationsTotal.WithLabelValues(string(result.Status), string(source)).Inc()
	}()

	set, src, err := e.resolver.Resolve(ctx, surveyID, criteriaSetID)
	source = src
	if err != nil {
		e.logger.Error("criteria resolution failed", "survey_id", surveyID, "error", err)
		return errorResult("criteria resolution failed: " + err.Error())
	}
	if set == nil {
		e.logger.Info("no criteria set available", "survey_id", surveyID)
		return errorResult("no criteria set found for survey")
	}

	return e.EvaluateSet(set, source, responses)
}

// EvaluateSet scores responses against an already resolved set. Every
// criterion is evaluated so criteria_met and criteria_failed are complete.
func (e *Engine) EvaluateSet(set *model.CriteriaSet, source Source, responses map[string]any) model.EvaluationResult {
	result := model.EvaluationResult{
		CriteriaMet:    []string{},
		CriteriaFailed: []string{},
		Details: model.EvaluationDetails{
			CriteriaSetID:    set.ID,
			CriteriaSetName:  set.Name,
			Source:           string(source),
			LogicType:        set.LogicType,
			PassingThreshold: set.PassingThreshold,
			Results:          make([]model.CriterionResult, 0, len(set.Criteria)),
		},
	}

	var (
		totalWeight    float64
		achievedWeight float64
		requiredTotal  int
		requiredPassed int
	)

	for _, c := range set.Criteria {
		cr := e.criterion.Evaluate(c, responses)
		result.Details.Results = append(result.Details.Results, cr)

		totalWeight += c.Weight
		if cr.Passed {
			achievedWeight += c.Weight
			result.CriteriaMet = append(result.CriteriaMet, c.ID)
		} else {
			result.CriteriaFailed = append(result.CriteriaFailed, c.ID)
		}

		if c.Required {
			requiredTotal++
			if cr.Passed {
				requiredPassed++
			}
		}
	}

	result.Details.TotalWeight = totalWeight
	result.Details.AchievedWeight = achievedWeight
	result.Score = Score(achievedWeight, totalWeight)

	var passed bool
	switch set.LogicType {
	case model.LogicAnyRequired:
		passed = requiredPassed > 0
	case model.LogicThresholdBased:
		passed = result.Score >= set.PassingThreshold
	case model.LogicWeightedScore:
		passed = achievedWeight >= set.PassingThreshold
	case model.LogicAllRequired:
		passed = requiredPassed == requiredTotal
	default:
		e.logger.Warn("unknown logic type, using all_required", "logic_type", set.LogicType, "criteria_set_id", set.ID)
		passed = requiredPassed == requiredTotal
	}

	if passed {
		result.Status = model.EvaluationPass
	} else {
		result.Status = model.EvaluationFail
	}
	return result
}

// Score is achieved/total as a percentage, 0 when total is 0.
func Score(achieved, total float64) float64 {
	if total == 0 {
		return 0
	}
	return achieved / total * 100
}

func errorResult(message string) model.EvaluationResult {
	return model.EvaluationResult{
		Status:         model.EvaluationError,
		Score:          0,
		CriteriaMet:    []string{},
		CriteriaFailed: []string{},
		Details:        model.EvaluationDetails{Message: message},
	}
}
