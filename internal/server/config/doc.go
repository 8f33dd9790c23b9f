// Package config defines the websec-server configuration.
//
//   - spec.go: ServerConfig and its sections, with koanf tags
//   - default.go: default values
//   - verify.go: validation run before the server starts and on reload
//   - sanitize.go: a copy safe to log (pepper and Redis password masked)
//   - load.go: loading and reloading through internal/infra/confloader
package config
