package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceType_IsValid(t *testing.T) {
	for _, rt := range []ResourceType{ResourceTypeProject, ResourceTypeFile, ResourceTypeInvitation, ResourceTypeMeeting} {
		assert.True(t, rt.IsValid(), string(rt))
	}
	assert.False(t, ResourceType("estimate").IsValid())
	assert.False(t, ResourceType("").IsValid())
}

func TestShareLink_EffectiveCap(t *testing.T) {
	link := ShareLink{MaxUses: 10}
	assert.Equal(t, 10, link.EffectiveCap())

	link.SingleUse = true
	assert.Equal(t, 1, link.EffectiveCap())
}

func TestShareLink_Status(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	cases := []struct {
		name string
		link ShareLink
		want ShareLinkStatus
	}{
		{"fresh link", ShareLink{MaxUses: 5}, StatusActive},
		{"used but under cap", ShareLink{MaxUses: 5, UsedCount: 4}, StatusActive},
		{"at cap", ShareLink{MaxUses: 5, UsedCount: 5}, StatusExhausted},
		{"single use consumed", ShareLink{MaxUses: 5, SingleUse: true, UsedCount: 1}, StatusExhausted},
		{"expired", ShareLink{MaxUses: 5, ExpiresAt: &past}, StatusExpired},
		{"expiry exactly now", ShareLink{MaxUses: 5, ExpiresAt: &now}, StatusExpired},
		{"not yet expired", ShareLink{MaxUses: 5, ExpiresAt: &future}, StatusActive},
		{"revoked wins over expired and exhausted", ShareLink{MaxUses: 1, UsedCount: 1, ExpiresAt: &past, RevokedAt: &past}, StatusRevoked},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.link.Status(now))
		})
	}
}

func TestShareLink_ViewHidesSecrets(t *testing.T) {
	now := time.Now()
	link := ShareLink{
		Token:        "tok",
		MaxUses:      1,
		PasswordHash: "$2a$12$abcdefghijklmnopqrstuv",
	}

	view := link.View(now)
	assert.Empty(t, view.PasswordHash)
	assert.Equal(t, StatusActive, view.Status)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
}

func TestShareLink_PasswordHashNeverMarshalled(t *testing.T) {
	link := ShareLink{Token: "tok", PasswordHash: "$2a$12$abcdefghijklmnopqrstuv"}

	raw, err := json.Marshal(link)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "$2a$12$")
}
