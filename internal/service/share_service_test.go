package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveypulse/internal/model"
	"surveypulse/internal/postback"
)

func TestShareService_Create(t *testing.T) {
	t.Parallel()

	// Arrange
	store := newMemoryShares()
	svc := NewShareService(store, "https://pulse.example.com/")
	req := CreateShareRequest{
		ThirdPartyName: "  Acme Ads ",
		Parameters: map[string]model.ShareParameter{
			postback.FieldClickID: {Enabled: true, CustomName: " cid "},
			postback.FieldPayout:  {Enabled: false},
		},
	}

	// Act
	got, err := svc.Create(context.Background(), req)

	// Assert
	require.NoError(t, err)
	assert.Len(t, got.UniquePostbackID, 36)
	assert.Equal(t, "https://pulse.example.com/postback/"+got.UniquePostbackID, got.PostbackURL)
	assert.Equal(t, "Acme Ads", got.ThirdPartyName)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.Len(t, got.Parameters, len(postback.StandardFields))
	assert.Equal(t, "cid", got.Parameters[postback.FieldClickID].CustomName)
	assert.False(t, got.Parameters[postback.FieldPayout].Enabled)
	assert.True(t, got.Parameters[postback.FieldSub1].Enabled, "unmentioned fields default to enabled")
}

func TestShareService_Create_UniqueIDs(t *testing.T) {
	t.Parallel()

	svc := NewShareService(newMemoryShares(), "https://pulse.example.com")
	req := CreateShareRequest{ThirdPartyName: "Acme"}

	a, errA := svc.Create(context.Background(), req)
	b, errB := svc.Create(context.Background(), req)

	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.NotEqual(t, a.UniquePostbackID, b.UniquePostbackID)
}

func TestShareService_Create_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     CreateShareRequest
		wantErr error
	}{
		{"missing name", CreateShareRequest{}, ErrInvalidShare},
		{"name too long", CreateShareRequest{ThirdPartyName: strings.Repeat("x", 101)}, ErrInvalidShare},
		{"unknown parameter", CreateShareRequest{
			ThirdPartyName: "Acme",
			Parameters:     map[string]model.ShareParameter{"favourite_colour": {Enabled: true}},
		}, ErrUnknownParameter},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMemoryShares()
			svc := NewShareService(store, "https://pulse.example.com")

			_, err := svc.Create(context.Background(), tt.req)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, store.shares)
		})
	}
}

func TestShareService_SetActive(t *testing.T) {
	t.Parallel()

	// Arrange
	svc := NewShareService(newMemoryShares(), "https://pulse.example.com")
	created, err := svc.Create(context.Background(), CreateShareRequest{ThirdPartyName: "Acme"})
	require.NoError(t, err)

	// Act
	revoked, revokeErr := svc.SetActive(context.Background(), created.UniquePostbackID, false)
	_, missingErr := svc.SetActive(context.Background(), "does-not-exist", true)

	// Assert
	require.NoError(t, revokeErr)
	assert.Equal(t, model.StatusInactive, revoked.Status)
	assert.ErrorIs(t, missingErr, ErrShareNotFound)
}

func TestShareService_GetAndList(t *testing.T) {
	t.Parallel()

	svc := NewShareService(newMemoryShares(), "https://pulse.example.com")
	first, err := svc.Create(context.Background(), CreateShareRequest{ThirdPartyName: "First"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateShareRequest{ThirdPartyName: "Second"})
	require.NoError(t, err)

	got, getErr := svc.Get(context.Background(), first.UniquePostbackID)
	_, missingErr := svc.Get(context.Background(), "nope")
	list, listErr := svc.List(context.Background())

	require.NoError(t, getErr)
	assert.Equal(t, "First", got.ThirdPartyName)
	assert.ErrorIs(t, missingErr, ErrShareNotFound)
	require.NoError(t, listErr)
	require.Len(t, list, 2)
	assert.Equal(t, "Second", list[0].ThirdPartyName)
	assert.NotEmpty(t, list[0].PostbackURL)
}
