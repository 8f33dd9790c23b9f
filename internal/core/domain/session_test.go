package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/websec-go/pkg/client"
	"github.com/yndnr/websec-go/pkg/token"
)

var now = time.Date(2025, 2, 22, 15, 0, 0, 0, time.UTC)

func newSession(t *testing.T) *Session {
	t.Helper()
	id, err := GenerateSessionID()
	require.NoError(t, err)
	c := client.NewIdentity("10.0.0.1", "Mozilla/5.0")
	c.SetFingerprint(token.NewWithValue("fp", "fingerprint-value", now, now.Add(time.Hour)))
	return &Session{
		ID:          id,
		Username:    "alice",
		TokenDigest: token.Digest("session-value"),
		CSRF:        token.NewWithValue("csrf", "csrf-value", now, now.Add(time.Hour)),
		Client:      c,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}
}

func TestGenerateSessionID(t *testing.T) {
	id, err := GenerateSessionID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, SessionIDPrefix))
	assert.Len(t, id, 31)
	assert.Equal(t, strings.ToLower(id), id)
	assert.True(t, IsValidSessionID(id))
	assert.True(t, IsValidSessionID(strings.ToUpper(id)))

	other, err := GenerateSessionID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestIsValidSessionID_Invalid(t *testing.T) {
	for _, id := range []string{"", "wsss-", "tmss-01arz3ndektsv4rrffq69g5fav", "wsss-01arz3ndektsv4rrffq69g5fa", "wsss-01arz3ndektsv4rrffq69g5fa!"} {
		assert.False(t, IsValidSessionID(id), id)
	}
}

func TestSession_Expiry(t *testing.T) {
	s := newSession(t)
	assert.False(t, s.IsExpired(now))
	assert.Equal(t, time.Hour, s.TTL(now))
	assert.True(t, s.IsExpired(now.Add(time.Hour)))
	assert.Zero(t, s.TTL(now.Add(2*time.Hour)))
}

func TestSession_Fingerprint(t *testing.T) {
	s := newSession(t)
	fp, ok := s.Fingerprint()
	require.True(t, ok)
	assert.Equal(t, "fingerprint-value", fp.Value())

	s.Client = nil
	_, ok = s.Fingerprint()
	assert.False(t, ok)
}

func TestSession_Validate(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Validate())

	s.Username = ""
	s.Client = nil
	s.ExpiresAt = s.CreatedAt
	err := s.Validate()
	require.ErrorIs(t, err, ErrBadRequest)
	assert.Contains(t, err.Error(), "username is required")
	assert.Contains(t, err.Error(), "client is required")
	assert.Contains(t, err.Error(), "expires_at")
}

func TestSession_Clone(t *testing.T) {
	s := newSession(t)
	dup := s.Clone()
	assert.True(t, s.Client.Equal(dup.Client))
	assert.NotSame(t, s.Client, dup.Client)

	dup.Client.ClearFingerprint()
	_, ok := s.Fingerprint()
	assert.True(t, ok)
}

func TestSession_JSON(t *testing.T) {
	s := newSession(t)
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "session-value")

	var got Session
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.TokenDigest, got.TokenDigest)
	assert.True(t, s.CSRF.Equal(got.CSRF))
	assert.True(t, s.Client.Equal(got.Client))
	assert.True(t, s.ExpiresAt.Equal(got.ExpiresAt))
}
