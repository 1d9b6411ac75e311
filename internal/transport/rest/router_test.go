package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveypulse/internal/config"
	"surveypulse/internal/model"
	"surveypulse/internal/postback"
	"surveypulse/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memoryShares struct {
	mu     sync.Mutex
	shares map[string]*model.PostbackShare
}

func (m *memoryShares) GetByUniqueID(_ context.Context, id string) (*model.PostbackShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shares[id], nil
}

func (m *memoryShares) RecordUsage(_ context.Context, id string, payload map[string]string, at time.Time) (*model.PostbackShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	share, ok := m.shares[id]
	if !ok {
		return nil, nil
	}
	share.UsageCount++
	share.LastUsed = &at
	share.LastPayload = payload
	return share, nil
}

type noSurveys struct{}

func (noSurveys) GetByID(context.Context, string) (*model.Survey, error) { return nil, nil }

type fakeSettingsRepo struct {
	merge bool
}

func (f *fakeSettingsRepo) Snapshot(context.Context) (model.SystemConfig, error) {
	return model.SystemConfig{MergeEnabled: f.merge}, nil
}

func (f *fakeSettingsRepo) SetMergeEnabled(_ context.Context, enabled bool) error {
	f.merge = enabled
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *memoryShares) {
	t.Helper()

	shares := &memoryShares{shares: map[string]*model.PostbackShare{
		"share-1": {
			UniquePostbackID: "share-1",
			ThirdPartyName:   "Acme Ads",
			Status:           model.StatusActive,
			Parameters: map[string]model.ShareParameter{
				postback.FieldClickID: {Enabled: true, CustomName: "cid"},
				postback.FieldPayout:  {Enabled: true},
			},
		},
	}}

	authCfg := config.AuthConfig{
		HostUsername: "admin",
		HostPassword: "hunter2",
		JWTSecret:    "0123456789abcdef0123456789abcdef",
		TokenTTL:     time.Hour,
	}
	c := &Container{
		Server: config.ServerConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: "GET, POST, PUT, DELETE, OPTIONS",
			AllowedHeaders: "Content-Type, Authorization",
		},
		Logger:      discardLogger(),
		AuthService: service.NewAuthService(authCfg),
		SubmissionService: service.NewSubmissionService(
			noSurveys{}, nil, nil, nil, nil, nil, nil, nil, config.PostbackConfig{}, discardLogger(),
		),
		AdminService: service.NewAdminService(&fakeSettingsRepo{merge: true}, nil, nil, discardLogger()),
		Receiver:     postback.NewReceiver(shares, nil, discardLogger()),
		HealthChecks: map[string]HealthCheck{
			"mongo": func(context.Context) error { return nil },
		},
	}
	return NewRouter(c), shares
}

func login(t *testing.T, router http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"username":"admin","password":"hunter2"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func TestRouter_InboundPostback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		build       func() *http.Request
		wantCode    int
		wantClickID string
	}{
		{
			name: "query string",
			build: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/postback/share-1?cid=abc&payout=1.5", nil)
			},
			wantCode:    http.StatusOK,
			wantClickID: "abc",
		},
		{
			name: "form body",
			build: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/postback/share-1", strings.NewReader(url.Values{"cid": {"form"}}.Encode()))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return req
			},
			wantCode:    http.StatusOK,
			wantClickID: "form",
		},
		{
			name: "json body",
			build: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/postback/share-1", strings.NewReader(`{"cid":"json","payout":2}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantCode:    http.StatusOK,
			wantClickID: "json",
		},
		{
			name: "malformed json body",
			build: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/postback/share-1?cid=abc", strings.NewReader(`{"cid":`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown share",
			build: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/postback/nope?cid=abc", nil)
			},
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			router, _ := newTestRouter(t)
			rec := httptest.NewRecorder()

			// Act
			router.ServeHTTP(rec, tt.build())

			// Assert
			require.Equal(t, tt.wantCode, rec.Code)
			var body postback.ReceiveResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.wantClickID != "" {
				assert.Equal(t, "success", body.Status)
				assert.Equal(t, tt.wantClickID, body.Parameters[postback.FieldClickID])
				assert.Equal(t, "Acme Ads", body.ThirdPartyName)
			} else {
				assert.Equal(t, "error", body.Status)
			}
		})
	}
}

func TestRouter_InboundPostbackCountsUsage(t *testing.T) {
	t.Parallel()

	router, shares := newTestRouter(t)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/postback/share-1?cid=abc", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, int64(3), shares.shares["share-1"].UsageCount)
}

func TestRouter_AdminRoutesRequireToken(t *testing.T) {
	t.Parallel()

	// Arrange
	router, _ := newTestRouter(t)
	token := login(t, router)

	anonymous := httptest.NewRequest(http.MethodGet, "/v1/settings", nil)
	forged := httptest.NewRequest(http.MethodGet, "/v1/settings", nil)
	forged.Header.Set("Authorization", "Bearer forged")
	authed := httptest.NewRequest(http.MethodGet, "/v1/settings", nil)
	authed.Header.Set("Authorization", "Bearer "+token)

	// Act
	anonRec, forgedRec, authedRec := httptest.NewRecorder(), httptest.NewRecorder(), httptest.NewRecorder()
	router.ServeHTTP(anonRec, anonymous)
	router.ServeHTTP(forgedRec, forged)
	router.ServeHTTP(authedRec, authed)

	// Assert
	assert.Equal(t, http.StatusUnauthorized, anonRec.Code)
	assert.Equal(t, http.StatusUnauthorized, forgedRec.Code)
	assert.Equal(t, http.StatusOK, authedRec.Code)
	assert.JSONEq(t, `{"mergeEnabled":true}`, authedRec.Body.String())
}

func TestRouter_UpdateSettings(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	token := login(t, router)

	req := httptest.NewRequest(http.MethodPut, "/v1/settings", strings.NewReader(`{"mergeEnabled":false}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	bad := httptest.NewRequest(http.MethodPut, "/v1/settings", strings.NewReader(`{}`))
	bad.Header.Set("Authorization", "Bearer "+token)
	badRec := httptest.NewRecorder()
	router.ServeHTTP(badRec, bad)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"mergeEnabled":false}`, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, badRec.Code)
}

func TestRouter_SubmitUnknownSurvey(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/surveys/missing/responses", strings.NewReader(`{"responses":{"q1":"yes"}}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), service.ErrSurveyNotFound.Error())
}

func TestRouter_PreflightSkipsAuth(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/shares", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	t.Parallel()

	// Arrange
	router, _ := newTestRouter(t)
	degraded := NewRouter(&Container{
		Server:      config.ServerConfig{AllowedOrigins: []string{"*"}},
		Logger:      discardLogger(),
		AuthService: service.NewAuthService(config.AuthConfig{JWTSecret: "x"}),
		HealthChecks: map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		},
	})

	// Act
	okRec, badRec, metricsRec := httptest.NewRecorder(), httptest.NewRecorder(), httptest.NewRecorder()
	router.ServeHTTP(okRec, httptest.NewRequest(http.MethodGet, "/health", nil))
	degraded.ServeHTTP(badRec, httptest.NewRequest(http.MethodGet, "/health", nil))
	router.ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Assert
	assert.Equal(t, http.StatusOK, okRec.Code)
	assert.JSONEq(t, `{"status":"ok","dependencies":{"mongo":"ok"}}`, okRec.Body.String())
	assert.Equal(t, http.StatusServiceUnavailable, badRec.Code)
	assert.Contains(t, badRec.Body.String(), "connection refused")
	assert.Equal(t, http.StatusOK, metricsRec.Code)
	assert.Contains(t, metricsRec.Body.String(), "surveypulse_http_requests_total")
}
