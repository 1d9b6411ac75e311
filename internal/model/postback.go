package model

import "time"

// ShareParameter configures how one standard field is named by a partner
type ShareParameter struct {
	Enabled    bool   `json:"enabled" bson:"enabled"`
	CustomName string `json:"customName,omitempty" bson:"customName,omitempty"`
}

// PostbackShare is a unique inbound postback URL handed to one external party
type PostbackShare struct {
	ID               string                    `json:"id" bson:"_id,omitempty"`
	UniquePostbackID string                    `json:"uniquePostbackId" bson:"unique_postback_id"`
	ThirdPartyName   string                    `json:"thirdPartyName" bson:"third_party_name"`
	Parameters       map[string]ShareParameter `json:"parameters" bson:"parameters"`
	Status           string                    `json:"status" bson:"status"`
	UsageCount       int64                     `json:"usageCount" bson:"usage_count"`
	LastUsed         *time.Time                `json:"lastUsed,omitempty" bson:"last_used,omitempty"`
	LastPayload      map[string]string         `json:"lastPayload,omitempty" bson:"last_payload,omitempty"`
	CreatedAt        time.Time                 `json:"createdAt" bson:"created_at"`
}

// AuditType distinguishes outbound deliveries from inbound receipts
type AuditType string

const (
	AuditOutbound AuditType = "outbound"
	AuditInbound  AuditType = "inbound"
)

// AuditStatus is the outcome of one attempt
type AuditStatus string

const (
	AuditSuccess AuditStatus = "success"
	AuditFailure AuditStatus = "failure"
)

// AuditLogEntry is one append-only row per delivery or receipt attempt
type AuditLogEntry struct {
	ID              string            `json:"id" bson:"_id,omitempty"`
	Type            AuditType         `json:"type" bson:"type"`
	RecipientKind   string            `json:"recipientKind,omitempty" bson:"recipient_kind,omitempty"`
	RecipientName   string            `json:"recipientName" bson:"recipient_name"`
	Sender          string            `json:"sender,omitempty" bson:"sender,omitempty"` // Heuristic guess, inbound only
	SurveyID        string            `json:"surveyId,omitempty" bson:"survey_id,omitempty"`
	ShareID         string            `json:"shareId,omitempty" bson:"share_id,omitempty"`
	URL             string            `json:"url" bson:"url"`
	Method          string            `json:"method,omitempty" bson:"method,omitempty"`
	Status          AuditStatus       `json:"status" bson:"status"`
	StatusCode      int               `json:"statusCode" bson:"status_code"`
	ResponseSnippet string            `json:"responseSnippet,omitempty" bson:"response_snippet,omitempty"`
	Error           string            `json:"error,omitempty" bson:"error,omitempty"`
	Parameters      map[string]string `json:"parameters,omitempty" bson:"parameters,omitempty"`
	DurationMS      int64             `json:"durationMs" bson:"duration_ms"`
	Timestamp       time.Time         `json:"timestamp" bson:"timestamp"`
}

// CompletionData is everything known about one finished survey response
type CompletionData struct {
	SurveyID    string
	SurveyTitle string
	ResponseID  string
	SessionID   string
	UserInfo    UserInfo
	Responses   map[string]any
	Evaluation  *EvaluationResult
	IPAddress   string
	UserAgent   string
	OfferID     string
	Payout      float64
	Currency    string
	CompletedAt time.Time
}

// Passed reports whether the completion counts as a pass
func (c *CompletionData) Passed() bool {
	return c.Evaluation.Passed()
}
