package model

import "time"

// DynamicRedirectConfig holds per-verdict redirect templates
type DynamicRedirectConfig struct {
	PassRedirectURL string `json:"passRedirectUrl" bson:"pass_redirect_url"` // may contain {session_id}, {status}, {score}
	FailRedirectURL string `json:"failRedirectUrl" bson:"fail_redirect_url"`
}

// FailPageConfig is the fallback page shown when no redirect applies
type FailPageConfig struct {
	URL           string `json:"url,omitempty" bson:"url,omitempty"`
	CustomMessage string `json:"customMessage,omitempty" bson:"custom_message,omitempty"`
	AllowRetry    bool   `json:"allowRetry" bson:"allow_retry"`
}

// SurveyConfig is the per-survey pass/fail and redirect configuration
type SurveyConfig struct {
	SurveyID                 string                `json:"surveyId" bson:"survey_id"`
	PassFailEnabled          bool                  `json:"passFailEnabled" bson:"pass_fail_enabled"`
	PepperAdsRedirectEnabled bool                  `json:"pepperadsRedirectEnabled" bson:"pepperads_redirect_enabled"`
	CriteriaSetID            string                `json:"criteriaSetId,omitempty" bson:"criteria_set_id,omitempty"`
	PepperAdsOfferID         string                `json:"pepperadsOfferId,omitempty" bson:"pepperads_offer_id,omitempty"`
	DynamicRedirectEnabled   bool                  `json:"dynamicRedirectEnabled" bson:"dynamic_redirect_enabled"`
	DynamicRedirectConfig    DynamicRedirectConfig `json:"dynamicRedirectConfig" bson:"dynamic_redirect_config"`
	FailPageConfig           FailPageConfig        `json:"failPageConfig" bson:"fail_page_config"`
	UpdatedAt                time.Time             `json:"updatedAt" bson:"updated_at"`
}

// SystemSettings is the persisted process-wide settings document
type SystemSettings struct {
	ID           string    `json:"id" bson:"_id"`
	MergeEnabled bool      `json:"mergeEnabled" bson:"merge_enabled"` // Kill switch for partner-offer redirects
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

// SystemConfig is a per-request snapshot of the system settings.
// It is passed explicitly; nothing reads it from a global.
type SystemConfig struct {
	MergeEnabled bool
}

// RedirectType is where the respondent is sent after submitting
type RedirectType string

const (
	RedirectPepperAds    RedirectType = "pepperads"
	RedirectThankYouPage RedirectType = "thankyou_page"
	RedirectFailPage     RedirectType = "fail_page"
	RedirectDynamic      RedirectType = "dynamic"
)

// RedirectDecision is the outcome of the redirect decision
type RedirectDecision struct {
	ShouldRedirect bool         `json:"shouldRedirect" bson:"shouldRedirect"`
	Reason         string       `json:"reason" bson:"reason"`
	RedirectType   RedirectType `json:"redirectType" bson:"redirectType"`
}

// RedirectURL is a fully rendered partner-offer destination
type RedirectURL struct {
	RedirectURL    string            `json:"redirectUrl" bson:"redirectUrl"`
	OfferName      string            `json:"offerName" bson:"offerName"`
	ParametersUsed map[string]string `json:"parametersUsed" bson:"parametersUsed"`
}

// RedirectOutcome is everything the public form needs to navigate away
type RedirectOutcome struct {
	Decision RedirectDecision `json:"decision" bson:"decision"`
	// Offer is set when Decision.ShouldRedirect is true and an offer could be rendered
	Offer *RedirectURL `json:"offer,omitempty" bson:"offer,omitempty"`
	// DynamicTemplate is returned unrendered; the client substitutes its placeholders
	DynamicTemplate string          `json:"dynamicTemplate,omitempty" bson:"dynamicTemplate,omitempty"`
	FailPage        *FailPageConfig `json:"failPage,omitempty" bson:"failPage,omitempty"`
}
