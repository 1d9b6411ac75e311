package postback

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"surveypulse/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSurveys map[string]*model.Survey

func (f fakeSurveys) GetByID(_ context.Context, id string) (*model.Survey, error) {
	return f[id], nil
}

type fakeUsers struct {
	byID    map[string]*model.User
	byEmail map[string]*model.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	return f.byID[id], nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.byEmail[email], nil
}

type fakePartners []model.LegacyPartner

func (f fakePartners) ListActive(context.Context) ([]model.LegacyPartner, error) {
	return f, nil
}

func (f fakePartners) GetByID(_ context.Context, id string) (*model.LegacyPartner, error) {
	for i := range f {
		if f[i].ID == id {
			return &f[i], nil
		}
	}
	return nil, nil
}

type fakeMappings []model.PartnerMapping

func (f fakeMappings) ListActiveBySurvey(_ context.Context, surveyID string) ([]model.PartnerMapping, error) {
	var out []model.PartnerMapping
	for _, m := range f {
		if m.SurveyID == surveyID {
			out = append(out, m)
		}
	}
	return out, nil
}

// scriptedSender answers by URL prefix and records every request.
type scriptedSender struct {
	mu       sync.Mutex
	requests []Request
	failures map[string]error
	statuses map[string]int
}

func (s *scriptedSender) Send(_ context.Context, req Request) (*Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	for prefix, err := range s.failures {
		if len(req.URL) >= len(prefix) && req.URL[:len(prefix)] == prefix {
			return nil, err
		}
	}
	for prefix, code := range s.statuses {
		if len(req.URL) >= len(prefix) && req.URL[:len(prefix)] == prefix {
			return &Response{StatusCode: code, Snippet: "nope"}, nil
		}
	}
	return &Response{StatusCode: 200, Snippet: "ok"}, nil
}

func (s *scriptedSender) urls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.requests))
	for _, r := range s.requests {
		out = append(out, r.URL)
	}
	return out
}

type memoryAudit struct {
	mu      sync.Mutex
	entries []model.AuditLogEntry
}

func (m *memoryAudit) Append(e model.AuditLogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}

func (m *memoryAudit) all() []model.AuditLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AuditLogEntry(nil), m.entries...)
}

type memoryShares struct {
	mu     sync.Mutex
	shares map[string]*model.PostbackShare
	err    error
}

func (m *memoryShares) GetByUniqueID(_ context.Context, id string) (*model.PostbackShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.shares[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memoryShares) RecordUsage(_ context.Context, id string, payload map[string]string, at time.Time) (*model.PostbackShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shares[id]
	if !ok {
		return nil, nil
	}
	s.UsageCount++
	s.LastUsed = &at
	s.LastPayload = payload
	cp := *s
	return &cp, nil
}
