package ws

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveypulse/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitForSubscribers(t *testing.T, h *Hub, topic string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Subscribers(topic) == n }, 2*time.Second, 10*time.Millisecond)
}

func receive(t *testing.T, conn *Connection) Message {
	t.Helper()
	select {
	case data, ok := <-conn.Send:
		require.True(t, ok, "connection closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
	return Message{}
}

func TestHub_PublishRoutesByTopic(t *testing.T) {
	t.Parallel()

	// Arrange
	hub := NewHub(discardLogger())
	defer hub.Stop()
	all := &Connection{Topic: TopicAll, Send: make(chan []byte, 4), Hub: hub}
	survey := &Connection{Topic: SurveyTopic("s1"), Send: make(chan []byte, 4), Hub: hub}
	other := &Connection{Topic: SurveyTopic("s2"), Send: make(chan []byte, 4), Hub: hub}
	hub.Register(all)
	hub.Register(survey)
	hub.Register(other)

	// Act
	hub.Publish(model.AuditLogEntry{Type: model.AuditOutbound, SurveyID: "s1", RecipientName: "Acme"})

	// Assert
	msg := receive(t, survey)
	assert.Equal(t, MsgDelivery, msg.Type)
	var entry model.AuditLogEntry
	require.NoError(t, json.Unmarshal(msg.Payload, &entry))
	assert.Equal(t, "Acme", entry.RecipientName)

	assert.Equal(t, MsgDelivery, receive(t, all).Type)
	assert.Empty(t, other.Send)
}

func TestHub_InboundEntriesReachShareTopic(t *testing.T) {
	t.Parallel()

	hub := NewHub(discardLogger())
	defer hub.Stop()
	share := &Connection{Topic: ShareTopic("sh1"), Send: make(chan []byte, 4), Hub: hub}
	hub.Register(share)

	hub.Publish(model.AuditLogEntry{Type: model.AuditInbound, ShareID: "sh1"})

	assert.Equal(t, MsgInbound, receive(t, share).Type)
}

func TestHub_UnregisterAndStop(t *testing.T) {
	t.Parallel()

	// Arrange
	hub := NewHub(discardLogger())
	a := &Connection{Topic: TopicAll, Send: make(chan []byte, 1), Hub: hub}
	b := &Connection{Topic: TopicAll, Send: make(chan []byte, 1), Hub: hub}
	hub.Register(a)
	hub.Register(b)
	waitForSubscribers(t, hub, TopicAll, 2)

	// Act
	hub.Unregister(a)
	waitForSubscribers(t, hub, TopicAll, 1)
	hub.Stop()

	// Assert
	_, aOpen := <-a.Send
	assert.False(t, aOpen)
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-b.Send:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotPanics(t, func() { hub.Publish(model.AuditLogEntry{}) })
}

type stubValidator struct{}

func (stubValidator) ValidateHostToken(token string) (*model.HostClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &model.HostClaims{HostID: "host_1"}, nil
}

func TestHandler_SurveyFeed(t *testing.T) {
	t.Parallel()

	// Arrange
	hub := NewHub(discardLogger())
	defer hub.Stop()
	h := NewHandler(hub, stubValidator{}, []string{"*"}, discardLogger())
	r := mux.NewRouter()
	r.HandleFunc("/v1/ws/surveys/{surveyId}/postbacks", h.SurveyFeed)
	srv := httptest.NewServer(r)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws/surveys/s1/postbacks"

	// Act
	_, resp, unauthErr := websocket.DefaultDialer.Dial(wsURL+"?token=bad", nil)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token=good", nil)
	require.NoError(t, err)
	defer conn.Close()
	waitForSubscribers(t, hub, SurveyTopic("s1"), 1)
	hub.Publish(model.AuditLogEntry{Type: model.AuditOutbound, SurveyID: "s1", RecipientName: "creator"})

	// Assert
	require.Error(t, unauthErr)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MsgDelivery, msg.Type)
}

func TestOriginChecker(t *testing.T) {
	t.Parallel()

	check := originChecker([]string{"https://admin.example.com"})

	allowed := httptest.NewRequest("GET", "/", nil)
	allowed.Header.Set("Origin", "https://admin.example.com")
	denied := httptest.NewRequest("GET", "/", nil)
	denied.Header.Set("Origin", "https://evil.example.com")
	none := httptest.NewRequest("GET", "/", nil)

	assert.True(t, check(allowed))
	assert.False(t, check(denied))
	assert.True(t, check(none))
}
