package postback

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveypulse/internal/model"
)

func newShareFixture() (*memoryShares, *memoryAudit, *Receiver) {
	shares := &memoryShares{shares: map[string]*model.PostbackShare{
		"live": {
			UniquePostbackID: "live",
			ThirdPartyName:   "Acme Ads",
			Status:           model.StatusActive,
			Parameters: map[string]model.ShareParameter{
				FieldClickID: {Enabled: true, CustomName: "cid"},
				FieldPayout:  {Enabled: true},
				FieldSub2:    {Enabled: false, CustomName: "s2"},
			},
		},
		"revoked": {UniquePostbackID: "revoked", ThirdPartyName: "Old", Status: model.StatusInactive},
	}}
	audit := &memoryAudit{}
	return shares, audit, NewReceiver(shares, audit, discardLogger())
}

func TestReceiver_MatchIncrementsUsage(t *testing.T) {
	t.Parallel()

	// Arrange
	shares, audit, r := newShareFixture()
	first := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)
	meta := InboundMeta{Method: http.MethodGet, URL: "/postback/live", UserAgent: "Everflow/2.0"}

	// Act
	r.now = func() time.Time { return first }
	res1 := r.Receive(context.Background(), "live", url.Values{"cid": {"abc"}, "payout": {"2.5"}, "s2": {"x"}}, meta)
	r.now = func() time.Time { return second }
	res2 := r.Receive(context.Background(), "live", url.Values{"click_id": {"def"}}, meta)

	// Assert
	require.Equal(t, http.StatusOK, res1.StatusCode)
	assert.Equal(t, int64(1), res1.UsageCount)
	assert.Equal(t, map[string]string{FieldClickID: "abc", FieldPayout: "2.5"}, res1.Parameters, "disabled sub2 is ignored")
	assert.Equal(t, "Everflow", res1.Sender)

	require.Equal(t, http.StatusOK, res2.StatusCode)
	assert.Equal(t, int64(2), res2.UsageCount)
	assert.Equal(t, map[string]string{FieldClickID: "def"}, res2.Parameters, "standard name is accepted as a fallback")

	stored := shares.shares["live"]
	assert.Equal(t, int64(2), stored.UsageCount)
	require.NotNil(t, stored.LastUsed)
	assert.Equal(t, second, *stored.LastUsed)
	assert.Equal(t, map[string]string{"click_id": "def"}, stored.LastPayload)

	entries := audit.all()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, model.AuditInbound, e.Type)
		assert.Equal(t, model.AuditSuccess, e.Status)
		assert.Equal(t, "Acme Ads", e.RecipientName)
		assert.Equal(t, "live", e.ShareID)
	}
}

func TestReceiver_NotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		uniqueID string
	}{
		{"unknown share", "missing"},
		{"revoked share", "revoked"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			shares, audit, r := newShareFixture()

			res := r.Receive(context.Background(), tt.uniqueID, url.Values{"transaction_id": {"PA_123"}}, InboundMeta{})

			assert.Equal(t, http.StatusNotFound, res.StatusCode)
			assert.Equal(t, "PepperAds", res.Sender)
			entries := audit.all()
			require.Len(t, entries, 1)
			assert.Equal(t, model.AuditFailure, entries[0].Status)
			assert.Equal(t, http.StatusNotFound, entries[0].StatusCode)
			assert.Equal(t, "share_not_found", entries[0].Error)
			assert.Zero(t, shares.shares["revoked"].UsageCount)
		})
	}
}

func TestReceiver_StoreError(t *testing.T) {
	t.Parallel()

	shares, audit, r := newShareFixture()
	shares.err = errors.New("mongo unavailable")

	res := r.Receive(context.Background(), "live", url.Values{}, InboundMeta{})

	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	entries := audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditFailure, entries[0].Status)
	assert.Equal(t, "lookup_failed", entries[0].Error)
}

func TestReceiver_RejectIsAudited(t *testing.T) {
	t.Parallel()

	// Arrange
	shares, audit, r := newShareFixture()
	meta := InboundMeta{Method: http.MethodPost, URL: "/postback/live?tid=PA_9"}

	// Act
	res := r.Reject("live", url.Values{"tid": {"PA_9"}}, meta, errors.New("unexpected EOF"))

	// Assert
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, "PepperAds", res.Sender)
	entries := audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditInbound, entries[0].Type)
	assert.Equal(t, model.AuditFailure, entries[0].Status)
	assert.Equal(t, http.StatusBadRequest, entries[0].StatusCode)
	assert.Equal(t, "invalid_body", entries[0].Error)
	assert.Equal(t, map[string]string{"tid": "PA_9"}, entries[0].Parameters)
	assert.Zero(t, shares.shares["live"].UsageCount, "rejected calls are not counted")
}

func TestExtractFields_NoConfiguredParameters(t *testing.T) {
	t.Parallel()

	share := &model.PostbackShare{}
	params := url.Values{"click_id": {"c"}, "payout": {"1"}, "event_name": {"lead"}, "unrelated": {"x"}}

	got := ExtractFields(share, params)

	assert.Equal(t, map[string]string{"click_id": "c", "payout": "1", "event_name": "lead"}, got)
}

func TestIdentifySender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, ua, referer, tx, want string
	}{
		{"user agent", "PepperAds-Postback/1.1", "", "", "PepperAds"},
		{"tooling", "curl/8.4.0", "", "", "curl"},
		{"browser uses referer host", "Mozilla/5.0", "https://www.partner.example/landing", "", "partner.example"},
		{"browser without referer", "Mozilla/5.0", "", "", "Browser"},
		{"referer only", "", "https://tracker.example.net/x", "", "tracker.example.net"},
		{"transaction id", "", "", "ef_998877", "Everflow"},
		{"unknown agent", "WeirdBot", "", "", "unknown (WeirdBot)"},
		{"nothing", "", "", "", "unknown"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, IdentifySender(tt.ua, tt.referer, tt.tx))
		})
	}
}
