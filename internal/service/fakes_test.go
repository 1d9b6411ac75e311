package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"surveypulse/internal/model"
	"surveypulse/internal/postback"
)

var errStore = errors.New("store unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeConfigs struct {
	byID map[string]*model.SurveyConfig
	err  error
}

func (f *fakeConfigs) GetBySurveyID(_ context.Context, surveyID string) (*model.SurveyConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byID[surveyID], nil
}

type fakeOffers map[string]*model.Offer

func (f fakeOffers) GetByID(_ context.Context, id string) (*model.Offer, error) {
	return f[id], nil
}

type fakeSurveys map[string]*model.Survey

func (f fakeSurveys) GetByID(_ context.Context, id string) (*model.Survey, error) {
	return f[id], nil
}

type fakeSettings struct {
	cfg model.SystemConfig
	err error
}

func (f fakeSettings) Snapshot(context.Context) (model.SystemConfig, error) {
	return f.cfg, f.err
}

type memoryResponses struct {
	mu       sync.Mutex
	created  []*model.SurveyResponse
	outcomes map[string]*model.RedirectOutcome
	evals    map[string]*model.EvaluationResult
}

func newMemoryResponses() *memoryResponses {
	return &memoryResponses{
		outcomes: map[string]*model.RedirectOutcome{},
		evals:    map[string]*model.EvaluationResult{},
	}
}

func (m *memoryResponses) Create(_ context.Context, r *model.SurveyResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = "resp-" + string(rune('0'+len(m.created)+1))
	m.created = append(m.created, r)
	return nil
}

func (m *memoryResponses) AttachOutcome(_ context.Context, id string, eval *model.EvaluationResult, redirect *model.RedirectOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evals[id] = eval
	m.outcomes[id] = redirect
	return nil
}

type stubEvaluator struct {
	result        model.EvaluationResult
	calls         int
	criteriaSetID string
}

func (s *stubEvaluator) Evaluate(_ context.Context, _ string, _ map[string]any, criteriaSetID string) model.EvaluationResult {
	s.calls++
	s.criteriaSetID = criteriaSetID
	return s.result
}

type recordingDispatcher struct {
	mu          sync.Mutex
	completions []*model.CompletionData
	ctxErrs     []error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, _ string, c *model.CompletionData) postback.DispatchResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completions = append(d.completions, c)
	d.ctxErrs = append(d.ctxErrs, ctx.Err())
	return postback.DispatchResult{TotalSent: 1, Successful: 1, Details: []postback.DeliveryResult{}}
}

type memoryShares struct {
	mu     sync.Mutex
	shares map[string]*model.PostbackShare
	order  []string
}

func newMemoryShares() *memoryShares {
	return &memoryShares{shares: map[string]*model.PostbackShare{}}
}

func (m *memoryShares) Create(_ context.Context, share *model.PostbackShare) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	share.ID = "share-" + share.UniquePostbackID[:8]
	m.shares[share.UniquePostbackID] = share
	m.order = append([]string{share.UniquePostbackID}, m.order...)
	return share.ID, nil
}

func (m *memoryShares) GetByUniqueID(_ context.Context, uniqueID string) (*model.PostbackShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shares[uniqueID], nil
}

func (m *memoryShares) List(context.Context) ([]*model.PostbackShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.PostbackShare, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.shares[id])
	}
	return out, nil
}

func (m *memoryShares) SetStatus(_ context.Context, uniqueID, status string) (*model.PostbackShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	share, ok := m.shares[uniqueID]
	if !ok {
		return nil, nil
	}
	share.Status = status
	return share, nil
}

func passResult() model.EvaluationResult {
	return model.EvaluationResult{Status: model.EvaluationPass, Score: 100, CriteriaMet: []string{"c1"}, CriteriaFailed: []string{}}
}

func failResult() model.EvaluationResult {
	return model.EvaluationResult{Status: model.EvaluationFail, Score: 20, CriteriaMet: []string{}, CriteriaFailed: []string{"c1"}}
}
