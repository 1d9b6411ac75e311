package model

import (
	"strings"
	"time"
)

// PostbackMethod is the HTTP verb used for a postback
type PostbackMethod string

const (
	MethodGET  PostbackMethod = "GET"
	MethodPOST PostbackMethod = "POST"
)

// Normalize returns POST for any casing of "post" and GET otherwise
func (m PostbackMethod) Normalize() PostbackMethod {
	if strings.EqualFold(string(m), string(MethodPOST)) {
		return MethodPOST
	}
	return MethodGET
}

// User is a survey creator account
type User struct {
	ID                string            `json:"id" bson:"_id,omitempty"`
	Email             string            `json:"email" bson:"email"`
	Username          string            `json:"username" bson:"username"`
	PostbackURL       string            `json:"postbackUrl,omitempty" bson:"postbackUrl,omitempty"`
	ParameterMappings map[string]string `json:"parameterMappings,omitempty" bson:"parameterMappings,omitempty"` // standard field -> custom name
	PostbackMethod    PostbackMethod    `json:"postbackMethod,omitempty" bson:"postbackMethod,omitempty"`
	IncludeResponses  bool              `json:"includeResponses" bson:"includeResponses"`
}

// PartnerPostbackConfig carries static extra parameters per verdict
type PartnerPostbackConfig struct {
	PassParams map[string]string `json:"passParams,omitempty" bson:"pass_params,omitempty"`
	FailParams map[string]string `json:"failParams,omitempty" bson:"fail_params,omitempty"`
}

// Partner statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// LegacyPartner is a global partner notified for every survey
type LegacyPartner struct {
	ID              string                `json:"id" bson:"_id,omitempty"`
	Name            string                `json:"name" bson:"name"`
	URL             string                `json:"url" bson:"url"` // Generic endpoint, gets status=/result= appended
	PassPostbackURL string                `json:"passPostbackUrl,omitempty" bson:"pass_postback_url,omitempty"`
	FailPostbackURL string                `json:"failPostbackUrl,omitempty" bson:"fail_postback_url,omitempty"`
	SendOnPass      bool                  `json:"sendOnPass" bson:"send_on_pass"`
	SendOnFail      bool                  `json:"sendOnFail" bson:"send_on_fail"`
	PostbackConfig  PartnerPostbackConfig `json:"postbackConfig" bson:"postback_config"`
	Status          string                `json:"status" bson:"status"`
	CreatedAt       time.Time             `json:"createdAt" bson:"created_at"`
}

// PartnerMapping joins one survey to one partner with its own parameter names
type PartnerMapping struct {
	ID                string            `json:"id" bson:"_id,omitempty"`
	SurveyID          string            `json:"surveyId" bson:"survey_id"`
	PartnerID         string            `json:"partnerId" bson:"partner_id"`
	PostbackURL       string            `json:"postbackUrl" bson:"postback_url"`
	PostbackMethod    PostbackMethod    `json:"postbackMethod,omitempty" bson:"postback_method,omitempty"`
	ParameterMappings map[string]string `json:"parameterMappings" bson:"parameter_mappings"`
	SendOnCompletion  bool              `json:"sendOnCompletion" bson:"send_on_completion"`
	SendOnFailure     bool              `json:"sendOnFailure" bson:"send_on_failure"`
	Status            string            `json:"status" bson:"status"`
	CreatedAt         time.Time         `json:"createdAt" bson:"created_at"`
}

// Offer is a partner offer page a passing respondent can be sent to
type Offer struct {
	ID                string            `json:"id" bson:"_id,omitempty"`
	Name              string            `json:"name" bson:"name"`
	BaseURL           string            `json:"baseUrl" bson:"base_url"` // may contain placeholders
	ParameterMappings map[string]string `json:"parameterMappings,omitempty" bson:"parameter_mappings,omitempty"`
	Payout            float64           `json:"payout" bson:"payout"`
	Currency          string            `json:"currency" bson:"currency"`
	Status            string            `json:"status" bson:"status"`
}
