package domain

import (
	"maps"
	"strings"
	"time"
	"unicode"
)

// Credential constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 64
	MinPasswordLength = 8
	MaxPasswordLength = 1024
)

// Credential is a stored password hash. The password itself is never kept.
type Credential struct {
	// Username is the normalized (lowercase) login name.
	Username string `json:"username"`

	// Algorithm names the hasher that produced Hash.
	Algorithm string `json:"algorithm"`

	// Params are the hasher parameters in effect when Hash was computed.
	Params map[string]int `json:"params,omitempty"`

	// Salt is the per-credential random salt.
	Salt []byte `json:"salt"`

	// Hash is the derived key.
	Hash []byte `json:"hash"`

	// CreatedAt is the registration time (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeUsername trims and lowercases a login name.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateUsername checks length and charset of a normalized username.
// Allowed characters are letters, digits, '.', '_', '-' and '@'.
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return ErrCredentialValidation.WithDetails("username must be 3-64 characters")
	}
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case '.', '_', '-', '@':
			continue
		}
		return ErrCredentialValidation.WithDetails("username contains invalid characters")
	}
	return nil
}

// ValidatePassword checks password length only.
func ValidatePassword(password []byte) error {
	if len(password) < MinPasswordLength {
		return ErrCredentialValidation.WithDetails("password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return ErrCredentialValidation.WithDetails("password exceeds 1024 characters")
	}
	return nil
}

// Validate checks that the credential is complete.
func (c *Credential) Validate() error {
	if err := ValidateUsername(c.Username); err != nil {
		return err
	}
	var violations []string
	if c.Algorithm == "" {
		violations = append(violations, "algorithm is required")
	}
	if len(c.Salt) == 0 {
		violations = append(violations, "salt is required")
	}
	if len(c.Hash) == 0 {
		violations = append(violations, "hash is required")
	}
	if len(violations) > 0 {
		return ErrCredentialValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// Clone creates a deep copy of the credential.
func (c *Credential) Clone() *Credential {
	clone := *c
	clone.Params = maps.Clone(c.Params)
	clone.Salt = append([]byte(nil), c.Salt...)
	clone.Hash = append([]byte(nil), c.Hash...)
	return &clone
}
