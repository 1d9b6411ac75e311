package model

import "time"

// UserInfo identifies the respondent as far as the public form knows
type UserInfo struct {
	UserID   string `json:"userId,omitempty" bson:"userId,omitempty"`
	Username string `json:"username,omitempty" bson:"username,omitempty"`
	Email    string `json:"email,omitempty" bson:"email,omitempty"`
	ClickID  string `json:"clickId,omitempty" bson:"clickId,omitempty"` // Affiliate click id carried in from the landing URL
	Sub1     string `json:"sub1,omitempty" bson:"sub1,omitempty"`
	Sub2     string `json:"sub2,omitempty" bson:"sub2,omitempty"`
}

// SurveyResponse is a stored public submission
type SurveyResponse struct {
	ID          string            `json:"id" bson:"_id,omitempty"`
	SurveyID    string            `json:"surveyId" bson:"surveyId"`
	SessionID   string            `json:"sessionId" bson:"sessionId"`
	UserInfo    UserInfo          `json:"userInfo" bson:"userInfo"`
	Responses   map[string]any    `json:"responses" bson:"responses"` // question id -> answer
	Evaluation  *EvaluationResult `json:"evaluation,omitempty" bson:"evaluation,omitempty"`
	Redirect    *RedirectOutcome  `json:"redirect,omitempty" bson:"redirect,omitempty"`
	IPAddress   string            `json:"ipAddress,omitempty" bson:"ipAddress,omitempty"`
	UserAgent   string            `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
	SubmittedAt time.Time         `json:"submittedAt" bson:"submittedAt"`
}

// HasAnswers reports whether any non-empty answer was submitted
func (r *SurveyResponse) HasAnswers() bool {
	for _, v := range r.Responses {
		if v != nil && v != "" {
			return true
		}
	}
	return false
}
