// Package evaluation decides whether a survey response passes a set of
// eligibility criteria.
package evaluation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"surveypulse/internal/model"
)

// Reasons reported on a CriterionResult.
const (
	ReasonNoResponse       = "no response found"
	ReasonMet              = "condition met"
	ReasonNotMet           = "condition not met"
	ReasonNotNumeric       = "value is not numeric"
	ReasonInvalidPattern   = "invalid regex pattern"
	ReasonUnknownCondition = "unknown condition, compared with equals"
)

// CriterionEvaluator checks one criterion against one respondent's answers.
type CriterionEvaluator struct {
	logger *slog.Logger
}

// NewCriterionEvaluator creates a CriterionEvaluator. A nil logger means slog.Default().
func NewCriterionEvaluator(logger *slog.Logger) *CriterionEvaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &CriterionEvaluator{logger: logger}
}

// Evaluate never panics and never returns an error: a missing answer, a
// non-numeric operand or a bad pattern all produce a failed result.
func (e *CriterionEvaluator) Evaluate(c model.Criterion, responses map[string]any) (result model.CriterionResult) {
	result = model.CriterionResult{
		CriterionID:   c.ID,
		QuestionID:    c.QuestionID,
		ExpectedValue: c.ExpectedValue,
		Weight:        c.Weight,
	}

	actual, ok := responses[c.QuestionID]
	if !ok || actual == nil {
		result.Reason = ReasonNoResponse
		return result
	}
	result.ActualValue = actual

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("criterion evaluation panicked",
				"criterion_id", c.ID,
				"condition", c.Condition,
				"panic", r,
			)
			result.Passed = false
			result.Reason = fmt.Sprintf("evaluation error: %v", r)
		}
	}()

	condition := model.Condition(strings.ToLower(strings.TrimSpace(string(c.Condition))))
	if !knownConditions[condition] {
		e.logger.Warn("unknown criterion condition, falling back to equals",
			"criterion_id", c.ID,
			"condition", c.Condition,
		)
		result.Passed = valuesEqual(actual, c.ExpectedValue)
		result.Reason = ReasonUnknownCondition
		return result
	}

	passed, reason := compare(condition, actual, c.ExpectedValue)
	result.Passed = passed
	result.Reason = reason
	return result
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

func compare(condition model.Condition, actual, expected any) (bool, string) {
	switch condition {
	case model.ConditionEquals:
		return verdict(valuesEqual(actual, expected))
	case model.ConditionNotEquals:
		return verdict(!valuesEqual(actual, expected))
	case model.ConditionContains:
		return verdict(contains(actual, expected))
	case model.ConditionNotContains:
		return verdict(!contains(actual, expected))
	case model.ConditionStartsWith:
		return verdict(strings.HasPrefix(normalizedString(actual), normalizedString(expected)))
	case model.ConditionEndsWith:
		return verdict(strings.HasSuffix(normalizedString(actual), normalizedString(expected)))
	case model.ConditionGreaterThan, model.ConditionGreaterThanOrEqual,
		model.ConditionLessThan, model.ConditionLessThanOrEqual:
		a, okA := toFloat(actual)
		b, okB := toFloat(expected)
		if !okA || !okB {
			return false, ReasonNotNumeric
		}
		return verdict(numericCompare(condition, a, b))
	case model.ConditionInList:
		return verdict(inList(actual, expected))
	case model.ConditionNotInList:
		return verdict(!inList(actual, expected))
	case model.ConditionRegexMatch:
		re, err := regexp.Compile("(?i)" + toString(expected))
		if err != nil {
			return false, ReasonInvalidPattern
		}
		return verdict(re.MatchString(strings.TrimSpace(toString(actual))))
	case model.ConditionLengthGreaterThan, model.ConditionLengthLessThan:
		limit, ok := toFloat(expected)
		if !ok {
			return false, ReasonNotNumeric
		}
		n := float64(length(actual))
		if condition == model.ConditionLengthGreaterThan {
			return verdict(n > limit)
		}
		return verdict(n < limit)
	}
	return false, ReasonNotMet
}

func verdict(ok bool) (bool, string) {
	if ok {
		return true, ReasonMet
	}
	return false, ReasonNotMet
}

func numericCompare(condition model.Condition, a, b float64) bool {
	switch condition {
	case model.ConditionGreaterThan:
		return a > b
	case model.ConditionGreaterThanOrEqual:
		return a >= b
	case model.ConditionLessThan:
		return a < b
	default:
		return a <= b
	}
}

// normalize lower-cases and trims strings; other values pass through.
func normalize(v any) any {
	if s, ok := v.(string); ok {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return v
}

func normalizedString(v any) string {
	return strings.ToLower(strings.TrimSpace(toString(v)))
}

// valuesEqual compares normalized strings as strings, anything numeric as
// numbers and falls back to the normalized textual form.
func valuesEqual(a, b any) bool {
	na, nb := normalize(a), normalize(b)

	sa, aIsString := na.(string)
	sb, bIsString := nb.(string)
	if aIsString && bIsString {
		return sa == sb
	}

	if fa, ok := toFloat(na); ok {
		if fb, ok := toFloat(nb); ok {
			return fa == fb
		}
	}

	return normalizedString(na) == normalizedString(nb)
}

func contains(actual, expected any) bool {
	if items, ok := toList(actual); ok {
		for _, item := range items {
			if valuesEqual(item, expected) {
				return true
			}
		}
		return false
	}
	return strings.Contains(normalizedString(actual), normalizedString(expected))
}

// inList accepts a list or a comma-separated string as the expected value.
// A list answer matches when any of its items is in the expected list.
func inList(actual, expected any) bool {
	allowed, ok := toList(expected)
	if !ok {
		for _, part := range strings.Split(toString(expected), ",") {
			allowed = append(allowed, part)
		}
	}

	candidates, ok := toList(actual)
	if !ok {
		candidates = []any{actual}
	}

	for _, candidate := range candidates {
		for _, item := range allowed {
			if valuesEqual(candidate, item) {
				return true
			}
		}
	}
	return false
}

func length(v any) int {
	if items, ok := toList(v); ok {
		return len(items)
	}
	return utf8.RuneCountInString(strings.TrimSpace(toString(v)))
}

// toFloat coerces numbers and numeric strings.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case json.Number:
		return s.String()
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}

// toList unwraps any slice or array (other than []byte) into []any.
func toList(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
