package postback

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"surveypulse/internal/model"
)

// Conversion statuses sent as conversion_status.
const (
	ConversionApproved = "approved"
	ConversionRejected = "rejected"
)

// EventSurveyCompleted is the event_name of every outbound postback.
const EventSurveyCompleted = "survey_completed"

// BuildData flattens a completion into the standard and extended fields.
// transactionID is shared by every recipient of one dispatch.
func BuildData(c *model.CompletionData, transactionID string) Data {
	status := string(model.EvaluationFail)
	conversion := ConversionRejected
	score := 0.0
	if c.Evaluation != nil {
		status = string(c.Evaluation.Status)
		score = c.Evaluation.Score
	}
	if c.Passed() {
		conversion = ConversionApproved
	}

	completedAt := c.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	sub1 := c.UserInfo.Sub1
	if sub1 == "" {
		sub1 = c.SurveyID
	}
	sub2 := c.UserInfo.Sub2
	if sub2 == "" {
		sub2 = c.SessionID
	}

	responses := c.Responses
	if responses == nil {
		responses = map[string]any{}
	}

	d := Data{
		FieldClickID:          c.UserInfo.ClickID,
		FieldPayout:           c.Payout,
		FieldCurrency:         c.Currency,
		FieldOfferID:          c.OfferID,
		FieldConversionStatus: conversion,
		FieldTransactionID:    transactionID,
		FieldSub1:             sub1,
		FieldSub2:             sub2,
		FieldEventName:        EventSurveyCompleted,
		FieldTimestamp:        completedAt.Unix(),

		FieldSurveyID:       c.SurveyID,
		FieldSurveyTitle:    c.SurveyTitle,
		FieldResponseID:     c.ResponseID,
		FieldUsername:       c.UserInfo.Username,
		FieldEmail:          c.UserInfo.Email,
		FieldUserID:         c.UserInfo.UserID,
		FieldSessionID:      c.SessionID,
		FieldIPAddress:      c.IPAddress,
		FieldUserAgent:      c.UserAgent,
		FieldStatus:         status,
		FieldScore:          score,
		FieldResponses:      responses,
		FieldResponsesFlat:  flattenResponses(responses),
		FieldResponsesCount: len(responses),
		FieldCompletedAt:    completedAt,
	}
	if c.Currency == "" {
		d[FieldCurrency] = "USD"
	}
	return d
}

// flattenResponses renders answers as "q1:yes|q2:3" in question order.
func flattenResponses(responses map[string]any) string {
	keys := make([]string, 0, len(responses))
	for k := range responses {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", k, stringify(responses[k])))
	}
	return strings.Join(parts, "|")
}
