// Package rng provides the process-wide random source used by websec.
//
// A Source is backed by crypto/rand whenever the host exposes a strong
// generator. When no strong generator is available the package falls back
// to a seeded math/rand/v2 PCG generator.
//
// Security:
//
//   - The fallback generator is NOT cryptographically secure. It exists so
//     that token minting keeps working on a degraded host; the switch is
//     reported through the OnFallback hook and must be surfaced by the
//     application (log line, metric).
//   - Seed only separates instances created in the same millisecond. It is
//     not a source of entropy.
//
// All Source implementations are safe for concurrent use.
package rng
