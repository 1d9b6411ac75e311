package evaluation

import (
	"math"
	"strings"

	"surveypulse/internal/model"
)

// DynamicPassingThreshold is the percentage a synthesized set must reach.
const DynamicPassingThreshold = 60.0

// keywordRule turns a question whose text mentions one of keywords into a
// criterion. The match is a plain substring test and will happily tag
// unrelated questions ("page" contains "age"); it is a best-effort guess.
type keywordRule struct {
	topic    string
	keywords []string
	build    func(q model.Question) (model.Condition, any, float64)
}

var keywordRules = []keywordRule{
	{
		topic:    "business",
		keywords: []string{"business", "start"},
		build: func(model.Question) (model.Condition, any, float64) {
			return model.ConditionEquals, "yes", 2.0
		},
	},
	{
		topic:    "age",
		keywords: []string{"age"},
		build: func(model.Question) (model.Condition, any, float64) {
			return model.ConditionGreaterThanOrEqual, 18, 1.0
		},
	},
	{
		topic:    "income",
		keywords: []string{"income", "salary"},
		build: func(model.Question) (model.Condition, any, float64) {
			return model.ConditionGreaterThan, 0, 1.5
		},
	},
	{
		topic:    "experience",
		keywords: []string{"experience", "years"},
		build: func(model.Question) (model.Condition, any, float64) {
			return model.ConditionGreaterThanOrEqual, 1, 1.0
		},
	},
	{
		topic:    "recommend",
		keywords: []string{"recommend", "likely"},
		build: func(q model.Question) (model.Condition, any, float64) {
			threshold := 7.0
			if q.ScaleMax > 0 {
				threshold = math.Ceil(0.7 * float64(q.ScaleMax))
			}
			return model.ConditionGreaterThanOrEqual, threshold, 1.5
		},
	},
	{
		topic:    "interest",
		keywords: []string{"interested", "interest"},
		build: func(model.Question) (model.Condition, any, float64) {
			return model.ConditionEquals, "yes", 2.0
		},
	},
}

// SynthesizeCriteria guesses a criteria set from a survey's questions.
// It returns nil when the survey is nil or has no questions.
func SynthesizeCriteria(survey *model.Survey) *model.CriteriaSet {
	if survey == nil || len(survey.Questions) == 0 {
		return nil
	}

	var criteria []model.Criterion
	for i, q := range survey.Questions {
		questionID := survey.QuestionIDAt(i)
		if c, ok := criterionFor(q, questionID); ok {
			criteria = append(criteria, c)
		}
	}

	if len(criteria) == 0 {
		questionID := survey.QuestionIDAt(0)
		criteria = []model.Criterion{{
			ID:            "dyn_" + questionID,
			QuestionID:    questionID,
			Condition:     model.ConditionLengthGreaterThan,
			ExpectedValue: 0,
			Required:      true,
			Weight:        1.0,
			Description:   "first question answered",
		}}
	}

	return &model.CriteriaSet{
		ID:               "dynamic_" + survey.ID,
		Name:             "Dynamic criteria for " + survey.Title,
		Criteria:         criteria,
		LogicType:        model.LogicThresholdBased,
		PassingThreshold: DynamicPassingThreshold,
		IsActive:         true,
		IsDynamic:        true,
	}
}

func criterionFor(q model.Question, questionID string) (model.Criterion, bool) {
	text := strings.ToLower(q.Text)
	c := model.Criterion{ID: "dyn_" + questionID, QuestionID: questionID}

	for _, rule := range keywordRules {
		if !containsAny(text, rule.keywords) {
			continue
		}
		c.Condition, c.ExpectedValue, c.Weight = rule.build(q)
		c.Description = "inferred " + rule.topic + " gate"
		return c, true
	}

	switch q.Type {
	case model.QuestionTypeYesNo:
		c.Condition, c.ExpectedValue, c.Weight = model.ConditionEquals, "yes", 1.0
	case model.QuestionTypeRating:
		c.Condition, c.ExpectedValue, c.Weight = model.ConditionGreaterThanOrEqual, ratingMidpoint(q), 1.0
	case model.QuestionTypeMultipleChoice:
		c.Condition, c.ExpectedValue, c.Weight = model.ConditionLengthGreaterThan, 0, 0.5
	default:
		return model.Criterion{}, false
	}
	c.Description = "inferred from " + string(q.Type) + " question"
	return c, true
}

func ratingMidpoint(q model.Question) float64 {
	lo, hi := q.ScaleMin, q.ScaleMax
	if hi <= lo {
		return 3
	}
	return math.Ceil(float64(lo+hi) / 2)
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
