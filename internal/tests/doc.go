// Package tests holds integration tests that run a real websec server
// over TCP with persistent storage and drive it through the CLI client.
//
// Run them with:
//
//	go test ./internal/tests/...
//
// They are skipped with -short.
package tests
