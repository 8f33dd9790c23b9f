// Package buildinfo exposes build-time version information for the websec
// binaries.
//
// Values are injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/websec-go/internal/infra/buildinfo.Version=v1.0.0"
//
// When a value is not injected it is filled from the module build info
// recorded by the Go toolchain, where available.
package buildinfo
