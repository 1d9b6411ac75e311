package postback

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveypulse/internal/config"
)

func TestHTTPSender_Send(t *testing.T) {
	t.Parallel()

	// Arrange
	var gotUA, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	s := NewHTTPSender(config.PostbackConfig{Timeout: time.Second, SnippetSize: 10, UserAgent: "surveypulse-test"})

	// Act
	resp, err := s.Send(context.Background(), Request{Method: http.MethodPost, URL: srv.URL, Body: []byte(`{"a":1}`)})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, strings.Repeat("x", 10), resp.Snippet)
	assert.Equal(t, "surveypulse-test", gotUA)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, `{"a":1}`, gotBody)
	assert.Empty(t, ErrorCode(resp.StatusCode, err))
}

func TestHTTPSender_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	s := NewHTTPSender(config.PostbackConfig{Timeout: 50 * time.Millisecond, SnippetSize: 10})

	_, err := s.Send(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	assert.Equal(t, "timeout", ErrorCode(0, err))
}

func TestHTTPSender_ConnectionError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	s := NewHTTPSender(config.PostbackConfig{Timeout: time.Second})

	_, err := s.Send(context.Background(), Request{Method: http.MethodGet, URL: addr})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, "connection_error", ErrorCode(0, err))
}

func TestHTTPSender_InvalidRequest(t *testing.T) {
	t.Parallel()

	s := NewHTTPSender(config.PostbackConfig{Timeout: time.Second})

	_, err := s.Send(context.Background(), Request{Method: "BAD METHOD", URL: "http://x"})

	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, "invalid_request", ErrorCode(0, err))
}

func TestErrorCode_Status(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", ErrorCode(204, nil))
	assert.Equal(t, "http_404", ErrorCode(404, nil))
	assert.Equal(t, "http_302", ErrorCode(302, nil))
}
