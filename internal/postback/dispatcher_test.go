package postback

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveypulse/internal/config"
	"surveypulse/internal/model"
)

type dispatchFixture struct {
	sender *scriptedSender
	audit  *memoryAudit
	d      *Dispatcher
}

func newDispatchFixture(partners fakePartners, mappings fakeMappings, users *fakeUsers, sender *scriptedSender) *dispatchFixture {
	surveys := fakeSurveys{"s1": {ID: "s1", OwnerUserID: "u1", CreatorEmail: "owner@example.com", Title: "Founders"}}
	if users == nil {
		users = &fakeUsers{}
	}
	audit := &memoryAudit{}
	cfg := config.PostbackConfig{Timeout: time.Second, MaxConcurrency: 2}
	return &dispatchFixture{
		sender: sender,
		audit:  audit,
		d:      NewDispatcher(surveys, users, partners, mappings, sender, audit, cfg, discardLogger()),
	}
}

func completion(status model.EvaluationStatus) *model.CompletionData {
	return &model.CompletionData{
		SurveyID:    "s1",
		SessionID:   "sess-1",
		UserInfo:    model.UserInfo{ClickID: "click-9"},
		Responses:   map[string]any{"q1": "Yes"},
		Evaluation:  &model.EvaluationResult{Status: status, Score: 100},
		CompletedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestDispatcher_IsolatesRecipientFailures(t *testing.T) {
	t.Parallel()

	// Arrange
	users := &fakeUsers{byID: map[string]*model.User{
		"u1": {ID: "u1", Username: "owner", PostbackURL: "https://one.test/cb?c={click_id}", ParameterMappings: map[string]string{FieldClickID: "cid"}},
	}}
	partners := fakePartners{{ID: "p2", Name: "two", PassPostbackURL: "https://two.test/pb", SendOnPass: true, Status: model.StatusActive}}
	mappings := fakeMappings{{SurveyID: "s1", PartnerID: "p3", PostbackURL: "https://three.test/pb", SendOnCompletion: true, Status: model.StatusActive,
		ParameterMappings: map[string]string{FieldTransactionID: "tid"}}}
	sender := &scriptedSender{failures: map[string]error{"https://two.test": fmt.Errorf("%w: deadline", ErrTimeout)}}
	f := newDispatchFixture(partners, mappings, users, sender)

	// Act
	result := f.d.Dispatch(context.Background(), "s1", completion(model.EvaluationPass))

	// Assert
	assert.Equal(t, 3, result.TotalSent)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, result.Error)

	require.Len(t, result.Details, 3)
	assert.Equal(t, KindCreator, result.Details[0].Kind)
	assert.True(t, result.Details[0].Success)
	assert.Equal(t, "https://one.test/cb?c=click-9", result.Details[0].URL)

	assert.Equal(t, "two", result.Details[1].Name)
	assert.False(t, result.Details[1].Success)
	assert.Equal(t, "timeout", result.Details[1].Error)

	assert.Equal(t, KindMappedPartner, result.Details[2].Kind)
	assert.Equal(t, "p3", result.Details[2].Name, "partner id when no partner record exists")
	assert.True(t, result.Details[2].Success)
	assert.True(t, strings.HasPrefix(result.Details[2].URL, "https://three.test/pb?tid="))

	entries := f.audit.all()
	require.Len(t, entries, 3, "one audit entry per attempt")
	failures := 0
	for _, e := range entries {
		assert.Equal(t, model.AuditOutbound, e.Type)
		assert.Equal(t, "s1", e.SurveyID)
		if e.Status == model.AuditFailure {
			failures++
			assert.Equal(t, "timeout", e.Error)
		}
	}
	assert.Equal(t, 1, failures)
}

func TestDispatcher_FailPathStillNotifies(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{byEmail: map[string]*model.User{
		"owner@example.com": {Email: "owner@example.com", PostbackURL: "https://creator.test/cb", ParameterMappings: map[string]string{FieldConversionStatus: "cs"}},
	}}
	partners := fakePartners{{ID: "p1", Name: "generic", URL: "https://generic.test/hook", SendOnPass: true, SendOnFail: true, Status: model.StatusActive,
		PostbackConfig: model.PartnerPostbackConfig{FailParams: map[string]string{"reason": "screened"}}}}
	mappings := fakeMappings{{SurveyID: "s1", PartnerID: "p1", PostbackURL: "https://mapped.test/pb?s=[CONVERSION_STATUS]", SendOnCompletion: true, Status: model.StatusActive}}
	f := newDispatchFixture(partners, mappings, users, &scriptedSender{})

	result := f.d.Dispatch(context.Background(), "s1", completion(model.EvaluationFail))

	require.Equal(t, 3, result.TotalSent)
	assert.Equal(t, 3, result.Successful)
	assert.Equal(t, "https://creator.test/cb?cs=rejected", result.Details[0].URL, "creator found by email fallback")
	assert.Equal(t, "https://generic.test/hook?reason=screened&result=failed&status=fail", result.Details[1].URL)
	assert.Equal(t, "https://mapped.test/pb?s=rejected", result.Details[2].URL)
	assert.Equal(t, "generic", result.Details[2].Name, "partner name resolved from the partner record")
}

func TestDispatcher_RecipientFilters(t *testing.T) {
	t.Parallel()

	partners := fakePartners{
		{ID: "a", Name: "pass-only", PassPostbackURL: "https://pass-only.test", SendOnPass: true, Status: model.StatusActive},
		{ID: "b", Name: "fail-only", FailPostbackURL: "https://fail-only.test", SendOnFail: true, Status: model.StatusActive},
		{ID: "c", Name: "inactive", URL: "https://inactive.test", SendOnPass: true, SendOnFail: true, Status: model.StatusInactive},
		{ID: "d", Name: "no-url", SendOnPass: true, SendOnFail: true, Status: model.StatusActive},
	}
	mappings := fakeMappings{
		{SurveyID: "s1", PartnerID: "m1", PostbackURL: "https://on-failure.test", SendOnFailure: true, Status: model.StatusActive},
		{SurveyID: "s1", PartnerID: "m2", PostbackURL: "https://always.test", SendOnCompletion: true, Status: model.StatusActive},
		{SurveyID: "other", PartnerID: "m3", PostbackURL: "https://other-survey.test", SendOnCompletion: true, Status: model.StatusActive},
	}

	tests := []struct {
		name   string
		status model.EvaluationStatus
		want   []string
	}{
		{"pass", model.EvaluationPass, []string{"https://pass-only.test", "https://always.test"}},
		{"fail", model.EvaluationFail, []string{"https://fail-only.test", "https://on-failure.test", "https://always.test"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newDispatchFixture(partners, mappings, nil, &scriptedSender{})

			result := f.d.Dispatch(context.Background(), "s1", completion(tt.status))

			got := make([]string, 0, len(result.Details))
			for _, d := range result.Details {
				got = append(got, strings.SplitN(d.URL, "?", 2)[0])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDispatcher_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	partners := fakePartners{{Name: "flaky", PassPostbackURL: "https://flaky.test/pb", SendOnPass: true, Status: model.StatusActive}}
	sender := &scriptedSender{statuses: map[string]int{"https://flaky.test": 503}}
	f := newDispatchFixture(partners, nil, nil, sender)

	result := f.d.Dispatch(context.Background(), "s1", completion(model.EvaluationPass))

	require.Len(t, result.Details, 1)
	assert.False(t, result.Details[0].Success)
	assert.Equal(t, 503, result.Details[0].StatusCode)
	assert.Equal(t, "http_503", result.Details[0].Error)
	entries := f.audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "nope", entries[0].ResponseSnippet)
}

func TestDispatcher_PostBody(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{byID: map[string]*model.User{
		"u1": {ID: "u1", PostbackURL: "https://creator.test/hook", PostbackMethod: "post", IncludeResponses: true},
	}}
	sender := &scriptedSender{}
	f := newDispatchFixture(nil, nil, users, sender)

	result := f.d.Dispatch(context.Background(), "s1", completion(model.EvaluationPass))

	require.Equal(t, 1, result.Successful)
	require.Len(t, sender.requests, 1)
	req := sender.requests[0]
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "https://creator.test/hook", req.URL)
	body := string(req.Body)
	assert.Contains(t, body, `"click_id":"click-9"`)
	assert.Contains(t, body, `"conversion_status":"approved"`)
	assert.Contains(t, body, `"responses":{"q1":"Yes"}`)
}

func TestDispatcher_NoRecipients(t *testing.T) {
	t.Parallel()

	f := newDispatchFixture(nil, nil, nil, &scriptedSender{})

	result := f.d.Dispatch(context.Background(), "s1", completion(model.EvaluationPass))

	assert.Zero(t, result.TotalSent)
	assert.NotNil(t, result.Details)
	assert.Empty(t, f.audit.all())
	assert.Empty(t, f.sender.urls())
}

type panickingSender struct{}

func (panickingSender) Send(context.Context, Request) (*Response, error) {
	panic("boom")
}

func TestDispatcher_RecoversFromSenderPanic(t *testing.T) {
	t.Parallel()

	partners := fakePartners{
		{Name: "a", PassPostbackURL: "https://a.test", SendOnPass: true, Status: model.StatusActive},
		{Name: "b", PassPostbackURL: "https://b.test", SendOnPass: true, Status: model.StatusActive},
	}
	surveys := fakeSurveys{}
	audit := &memoryAudit{}
	d := NewDispatcher(surveys, &fakeUsers{}, partners, fakeMappings(nil), panickingSender{}, audit, config.PostbackConfig{Timeout: time.Second}, discardLogger())

	var result DispatchResult
	require.NotPanics(t, func() {
		result = d.Dispatch(context.Background(), "s1", completion(model.EvaluationPass))
	})

	assert.Equal(t, 2, result.TotalSent)
	assert.Equal(t, 2, result.Failed)
	assert.Contains(t, result.Details[0].Error, "internal_error")
	assert.Len(t, audit.all(), 2)
}
