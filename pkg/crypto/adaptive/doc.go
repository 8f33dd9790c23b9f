// Package adaptive seals data with an AEAD cipher chosen for the host.
//
// AES-256-GCM is used where the CPU accelerates AES and
// ChaCha20-Poly1305 elsewhere. The cipher is recorded in the sealed
// envelope, so data sealed on one host opens on any other.
//
// Usage:
//
//	sealed, err := adaptive.SealWithPassphrase(pass, backup)
//	backup, err := adaptive.OpenWithPassphrase(pass, sealed)
package adaptive
