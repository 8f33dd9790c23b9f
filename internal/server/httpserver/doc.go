// Package httpserver assembles the websec HTTP server: security filters,
// session middleware and the route table.
//
// Request flow:
//
//	Recover -> RequestID -> ResponseHeaders -> HTTPSRedirect -> AccessControl -> mux
//
// Routes that need a login add ClientBinding, and state-changing ones add
// CSRF on top of it. Every route is wrapped by Instrument, which writes
// the audit log line and the request metrics.
package httpserver
