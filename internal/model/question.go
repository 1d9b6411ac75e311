package model

// QuestionType is the declared answer type of a question
type QuestionType string

const (
	QuestionTypeYesNo          QuestionType = "yes_no"
	QuestionTypeRating         QuestionType = "rating"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeText           QuestionType = "text"
	QuestionTypeNumber         QuestionType = "number"
)

// Question is a single survey question
type Question struct {
	ID       string       `json:"id" bson:"id"` // e.g. "q1"; answers are keyed by this
	Text     string       `json:"text" bson:"text"`
	Type     QuestionType `json:"type" bson:"type"`
	Options  []string     `json:"options,omitempty" bson:"options,omitempty"`   // multiple_choice only
	ScaleMin int          `json:"scaleMin,omitempty" bson:"scaleMin,omitempty"` // rating only
	ScaleMax int          `json:"scaleMax,omitempty" bson:"scaleMax,omitempty"` // rating only
	Required bool         `json:"required" bson:"required"`
}
