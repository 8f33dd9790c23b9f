// Package shutdown runs registered cleanup hooks when the process receives
// SIGINT or SIGTERM, or when a parent context is cancelled.
//
// Hooks run in reverse registration order under a shared timeout, so the
// HTTP server registered last drains before the stores it depends on close.
package shutdown
