package model

// Condition is a comparison operator applied by a criterion
type Condition string

const (
	ConditionEquals             Condition = "equals"
	ConditionNotEquals          Condition = "not_equals"
	ConditionContains           Condition = "contains"
	ConditionNotContains        Condition = "not_contains"
	ConditionStartsWith         Condition = "starts_with"
	ConditionEndsWith           Condition = "ends_with"
	ConditionGreaterThan        Condition = "greater_than"
	ConditionGreaterThanOrEqual Condition = "greater_than_or_equal"
	ConditionLessThan           Condition = "less_than"
	ConditionLessThanOrEqual    Condition = "less_than_or_equal"
	ConditionInList             Condition = "in_list"
	ConditionNotInList          Condition = "not_in_list"
	ConditionRegexMatch         Condition = "regex_match"
	ConditionLengthGreaterThan  Condition = "length_greater_than"
	ConditionLengthLessThan     Condition = "length_less_than"
)

// LogicType is the combination policy of a criteria set
type LogicType string

const (
	LogicAllRequired    LogicType = "all_required"
	LogicAnyRequired    LogicType = "any_required"
	LogicThresholdBased LogicType = "threshold_based" // threshold is a percentage of total weight
	LogicWeightedScore  LogicType = "weighted_score"  // threshold is an absolute weight sum
)

// Criterion is one testable fact about a response
type Criterion struct {
	ID            string    `json:"id" bson:"id"`
	QuestionID    string    `json:"questionId" bson:"questionId"`
	Condition     Condition `json:"condition" bson:"condition"`
	ExpectedValue any       `json:"expectedValue" bson:"expectedValue"`
	Required      bool      `json:"required" bson:"required"`
	Weight        float64   `json:"weight" bson:"weight"`
	Description   string    `json:"description,omitempty" bson:"description,omitempty"`
}

// CriteriaSet bundles criteria with a combination policy
type CriteriaSet struct {
	ID               string      `json:"id" bson:"_id,omitempty"`
	Name             string      `json:"name" bson:"name"`
	Criteria         []Criterion `json:"criteria" bson:"criteria"`
	LogicType        LogicType   `json:"logicType" bson:"logicType"`
	PassingThreshold float64     `json:"passingThreshold" bson:"passingThreshold"`
	IsActive         bool        `json:"isActive" bson:"isActive"`
	IsDynamic        bool        `json:"isDynamic" bson:"isDynamic"` // Synthesized from question text, never stored
}

// EvaluationStatus is the verdict of an evaluation
type EvaluationStatus string

const (
	EvaluationPass  EvaluationStatus = "pass"
	EvaluationFail  EvaluationStatus = "fail"
	EvaluationError EvaluationStatus = "error"
)

// CriterionResult is the outcome of a single criterion
type CriterionResult struct {
	CriterionID   string  `json:"criterionId" bson:"criterionId"`
	QuestionID    string  `json:"questionId" bson:"questionId"`
	Passed        bool    `json:"passed" bson:"passed"`
	Reason        string  `json:"reason" bson:"reason"`
	ActualValue   any     `json:"actualValue" bson:"actualValue"`
	ExpectedValue any     `json:"expectedValue" bson:"expectedValue"`
	Weight        float64 `json:"weight" bson:"weight"`
}

// EvaluationDetails explains how a verdict was reached
type EvaluationDetails struct {
	CriteriaSetID    string            `json:"criteriaSetId,omitempty" bson:"criteriaSetId,omitempty"`
	CriteriaSetName  string            `json:"criteriaSetName,omitempty" bson:"criteriaSetName,omitempty"`
	Source           string            `json:"source,omitempty" bson:"source,omitempty"`
	LogicType        LogicType         `json:"logicType,omitempty" bson:"logicType,omitempty"`
	PassingThreshold float64           `json:"passingThreshold" bson:"passingThreshold"`
	TotalWeight      float64           `json:"totalWeight" bson:"totalWeight"`
	AchievedWeight   float64           `json:"achievedWeight" bson:"achievedWeight"`
	Results          []CriterionResult `json:"results,omitempty" bson:"results,omitempty"`
	Message          string            `json:"message,omitempty" bson:"message,omitempty"`
}

// EvaluationResult is computed fresh per submission
type EvaluationResult struct {
	Status         EvaluationStatus  `json:"status" bson:"status"`
	Score          float64           `json:"score" bson:"score"` // 0-100
	CriteriaMet    []string          `json:"criteriaMet" bson:"criteriaMet"`
	CriteriaFailed []string          `json:"criteriaFailed" bson:"criteriaFailed"`
	Details        EvaluationDetails `json:"details" bson:"details"`
}

// Passed reports whether the verdict is a pass
func (r *EvaluationResult) Passed() bool {
	return r != nil && r.Status == EvaluationPass
}
