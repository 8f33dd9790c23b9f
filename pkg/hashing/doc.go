// Package hashing derives irreversible credential hashes.
//
// A Hasher turns a password and a per-record salt (optionally combined with
// an application-wide pepper) into a fixed-length key. Two variants exist:
//
//   - PBKDF2WithHmacSHA512 (default): ITERATION_COUNT work factor, 512-bit key
//   - Argon2id: TIME_COST, MEMORY_COST and PARALLELISM, 512-bit key
//
// The variant is chosen at configuration time with New.
//
// Password buffers:
//
// Hash takes the password as a caller-owned []byte and overwrites every
// byte with ScrubByte once the key is derived. Pass a buffer you are willing
// to lose. The scrub is best-effort: copies made earlier (string
// conversions, request bodies, swapped pages) are out of reach.
//
// Verification must go through Verify, which compares in constant time.
package hashing
