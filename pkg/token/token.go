package token

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Token is an issued, time-bounded secret with an identifying name.
//
// The zero value is an empty, already-expired token.
type Token struct {
	id        string
	value     string
	issuedAt  time.Time
	expiresAt time.Time
}

// New creates a token without a generated value, issued now.
// It serves markers such as password-reset windows where only the name and
// expiry matter. expiresAt may lie in the past.
func New(id string, expiresAt time.Time) Token {
	return Token{
		id:        id,
		issuedAt:  time.Now().UTC(),
		expiresAt: expiresAt.UTC(),
	}
}

// NewWithValue creates a fully specified token. Generators and stores
// restoring persisted tokens use it.
func NewWithValue(id, value string, issuedAt, expiresAt time.Time) Token {
	return Token{
		id:        id,
		value:     value,
		issuedAt:  issuedAt.UTC(),
		expiresAt: expiresAt.UTC(),
	}
}

// ID returns the token's name or category.
func (t Token) ID() string { return t.id }

// Value returns the secret material. Never log it; use Mask.
func (t Token) Value() string { return t.value }

// IssuedAt returns the UTC issue time.
func (t Token) IssuedAt() time.Time { return t.issuedAt }

// ExpiresAt returns the UTC expiry time.
func (t Token) ExpiresAt() time.Time { return t.expiresAt }

// IsZero reports whether t is the zero Token.
func (t Token) IsZero() bool {
	return t.id == "" && t.value == "" && t.issuedAt.IsZero() && t.expiresAt.IsZero()
}

// IsExpired reports whether the token has expired.
func (t Token) IsExpired() bool {
	return t.IsExpiredAt(time.Now())
}

// IsValid reports whether the token has not yet expired.
func (t Token) IsValid() bool {
	return t.IsValidAt(time.Now())
}

// IsExpiredAt reports whether the token is expired at instant now.
// A token expires exactly at ExpiresAt.
func (t Token) IsExpiredAt(now time.Time) bool {
	return !t.expiresAt.After(now)
}

// IsValidAt is the complement of IsExpiredAt.
func (t Token) IsValidAt(now time.Time) bool {
	return t.expiresAt.After(now)
}

// SecondsUntilExpiration returns the whole seconds left before expiry,
// truncated toward zero. It is negative once the token has expired.
func (t Token) SecondsUntilExpiration() int {
	return t.secondsUntilExpirationAt(time.Now())
}

func (t Token) secondsUntilExpirationAt(now time.Time) int {
	return int(t.expiresAt.Sub(now) / time.Second)
}

// TTL returns the remaining lifetime, or zero once expired.
func (t Token) TTL() time.Duration {
	d := time.Until(t.expiresAt)
	if d < 0 {
		return 0
	}
	return d
}

// Equal reports whether all four fields match.
func (t Token) Equal(o Token) bool {
	return t.id == o.id &&
		t.value == o.value &&
		t.issuedAt.Equal(o.issuedAt) &&
		t.expiresAt.Equal(o.expiresAt)
}

// Compare orders tokens by ID, then value, then issue time, then expiry.
// It returns -1, 0 or +1.
func (t Token) Compare(o Token) int {
	if c := strings.Compare(t.id, o.id); c != 0 {
		return c
	}
	if c := strings.Compare(t.value, o.value); c != 0 {
		return c
	}
	if c := t.issuedAt.Compare(o.issuedAt); c != 0 {
		return c
	}
	return t.expiresAt.Compare(o.expiresAt)
}

// String renders the token with its value masked.
func (t Token) String() string {
	return fmt.Sprintf("Token{id=%s, value=%s, issued=%s, expires=%s}",
		t.id, Mask(t.value),
		t.issuedAt.Format(time.RFC3339), t.expiresAt.Format(time.RFC3339))
}

// wireToken is the persisted form of a Token.
type wireToken struct {
	ID        string    `json:"id"`
	Value     string    `json:"value,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MarshalJSON implements json.Marshaler. The value is included; callers
// that persist tokens own its protection.
func (t Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireToken{
		ID:        t.id,
		Value:     t.value,
		IssuedAt:  t.issuedAt,
		ExpiresAt: t.expiresAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Token) UnmarshalJSON(data []byte) error {
	var w wireToken
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = NewWithValue(w.ID, w.Value, w.IssuedAt, w.ExpiresAt)
	return nil
}
