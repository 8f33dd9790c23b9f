package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// redacted replaces values too short to partially reveal.
const redacted = "***REDACTED***"

// Digest computes the hex-encoded SHA-256 digest of a token value.
//
// Token values carry enough entropy that an unsalted digest is safe to
// store; passwords are not and go through package hashing instead.
func Digest(value string) string {
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:])
}

// VerifyDigest checks value against a stored digest in constant time.
func VerifyDigest(value, digest string) bool {
	actual := Digest(value)
	return subtle.ConstantTimeCompare([]byte(actual), []byte(digest)) == 1
}

// EqualValues compares two token values in constant time.
func EqualValues(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Mask renders a token value safe for logging: the first and last three
// characters around an ellipsis.
// Example: AbC...xYz
func Mask(value string) string {
	if len(value) < 10 {
		return redacted
	}
	return value[:3] + "..." + value[len(value)-3:]
}
