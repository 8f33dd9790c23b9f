// Package service implements account signup, password login and
// client-bound sessions on top of the websec primitives.
//
// AuthService salts and hashes passwords with the configured Hasher and an
// application pepper, throttles login attempts per username, and mints
// three tokens per login:
//
//   - session token (alphanumeric): only its SHA-256 digest is stored
//   - CSRF token (base64): echoed by the browser on state-changing requests
//   - fingerprint token (hexadecimal): bound to the client identity
//
// A session cookie carries "<session id>.<session token>". Validation
// checks the token digest, expiry, the client's IP and user agent, and the
// fingerprint cookie. Any binding mismatch expires the session at once.
package service
