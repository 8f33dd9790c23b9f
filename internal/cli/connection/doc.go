// Package connection is the websec-cli client for the websec HTTP API.
//
// A Client keeps the session and fingerprint cookies in a cookie jar and
// remembers the CSRF token returned by login, so a sequence of calls on
// one Client behaves like a browser session.
package connection
