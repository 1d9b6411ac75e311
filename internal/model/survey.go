package model

import (
	"strconv"
	"time"
)

// Survey is a questionnaire owned by a creator account
type Survey struct {
	ID           string     `json:"id" bson:"_id,omitempty"`
	OwnerUserID  string     `json:"ownerUserId" bson:"ownerUserId"`
	CreatorEmail string     `json:"creatorEmail,omitempty" bson:"creatorEmail,omitempty"` // Fallback owner lookup
	Title        string     `json:"title" bson:"title"`
	Description  string     `json:"description,omitempty" bson:"description,omitempty"`
	Questions    []Question `json:"questions" bson:"questions"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// QuestionIDAt returns the id of the i-th question, or the positional id "q<i+1>"
func (s *Survey) QuestionIDAt(i int) string {
	if i < len(s.Questions) && s.Questions[i].ID != "" {
		return s.Questions[i].ID
	}
	return "q" + strconv.Itoa(i+1)
}

