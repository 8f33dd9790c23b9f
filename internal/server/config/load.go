package config

import (
	"fmt"

	"github.com/yndnr/websec-go/internal/infra/confloader"
)

// Load reads the server configuration from path (optional) and WEBSEC_*
// environment variables over the defaults, and verifies it. The returned
// loader re-reads the same sources through Reload.
func Load(path string) (*ServerConfig, *confloader.Loader, error) {
	l := confloader.NewLoader(confloader.WithConfigFile(path))
	cfg := Default()
	if err := l.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, l, nil
}

// Reload re-reads the loader's sources into a fresh default configuration
// and verifies it.
func Reload(l *confloader.Loader) (*ServerConfig, error) {
	cfg := Default()
	if err := l.Reload(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
