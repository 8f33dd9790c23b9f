package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/websec-go/pkg/client"
	"github.com/yndnr/websec-go/pkg/token"
)

// SessionIDPrefix is the prefix for session IDs.
const SessionIDPrefix = "wsss-"

// Session is an authenticated login bound to the client that opened it.
type Session struct {
	// ID is the unique identifier, wsss-{ulid_lowercase}, 31 characters.
	ID string `json:"id"`

	// Username owns the session.
	Username string `json:"username"`

	// TokenDigest is the SHA-256 hex digest of the session token value.
	// The raw value only ever lives in the client's cookie.
	TokenDigest string `json:"token_digest"`

	// CSRF is the per-session anti-forgery token.
	CSRF token.Token `json:"csrf"`

	// Client is the identity that logged in, with its fingerprint.
	Client *client.Identity `json:"client"`

	// CreatedAt is the login time (UTC).
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is the absolute expiry (UTC).
	ExpiresAt time.Time `json:"expires_at"`
}

// GenerateSessionID generates a new session ID using ULID.
func GenerateSessionID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return SessionIDPrefix + strings.ToLower(id.String()), nil
}

// IsValidSessionID checks if a string is a valid session ID.
func IsValidSessionID(id string) bool {
	id = strings.ToLower(id)
	if !strings.HasPrefix(id, SessionIDPrefix) || len(id) != len(SessionIDPrefix)+ulid.EncodedSize {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(id[len(SessionIDPrefix):]))
	return err == nil
}

// IsExpired reports whether the session has expired at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// TTL returns the time remaining until expiry, zero once expired.
func (s *Session) TTL(now time.Time) time.Duration {
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Fingerprint returns the fingerprint bound to the session's client.
func (s *Session) Fingerprint() (token.Token, bool) {
	if s.Client == nil {
		return token.Token{}, false
	}
	return s.Client.Fingerprint()
}

// Validate checks that the session is complete.
func (s *Session) Validate() error {
	var violations []string
	if !IsValidSessionID(s.ID) {
		violations = append(violations, "invalid session id")
	}
	if s.Username == "" {
		violations = append(violations, "username is required")
	}
	if s.TokenDigest == "" {
		violations = append(violations, "token digest is required")
	}
	if s.Client == nil {
		violations = append(violations, "client is required")
	}
	if !s.ExpiresAt.After(s.CreatedAt) {
		violations = append(violations, "expires_at must be after created_at")
	}
	if len(violations) > 0 {
		return ErrBadRequest.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// Clone creates a deep copy of the session.
func (s *Session) Clone() *Session {
	clone := *s
	if s.Client != nil {
		clone.Client = s.Client.Clone()
	}
	return &clone
}
