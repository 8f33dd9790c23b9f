// Package domain defines the core domain models for websec.
//
// Domain models are plain entities without IO dependencies:
//
//   - Credential: a username with its salted password hash
//   - Session: a login session bound to a client identity
//   - Errors: WS-<AREA>-<NNNN> coded domain errors
package domain
