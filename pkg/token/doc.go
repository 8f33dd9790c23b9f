// Package token issues and describes short-lived security tokens.
//
// A Token pairs a logical name (its ID, e.g. "csrf" or "session") with a
// secret value and an issue/expiry window. Tokens are immutable values; the
// package never stores them.
//
// Value encodings:
//
//   - Alphanumeric: symbols from [0-9A-Za-z]
//   - Hexadecimal:  symbols from [0-9A-F]
//   - Base64:       standard alphabet, unpadded
//
// Lengths are expressed in characters and clamped to [MinLength, MaxLength];
// out-of-range requests are never rejected.
//
// Expiry is informational. IsExpired/IsValid compare against the clock but a
// Token never refuses to be used; enforcement belongs to the caller.
//
// Storage:
//
//   - Digest/VerifyDigest provide SHA-256 digests with constant-time
//     comparison for callers that persist token values.
//   - Mask renders a value safe for logs.
package token
