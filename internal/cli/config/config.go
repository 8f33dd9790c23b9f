package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/websec-go/internal/cli/output"
	"github.com/yndnr/websec-go/internal/infra/confloader"
)

// EnvPrefix prefixes environment overrides, e.g. WEBSEC_CLI_SERVER.
const EnvPrefix = "WEBSEC_CLI_"

// CLIConfig is the websec-cli configuration.
type CLIConfig struct {
	// Server is the websec-server base URL.
	Server string `koanf:"server" json:"server"`
	// Output is table, json or yaml.
	Output string `koanf:"output" json:"output"`
	// Timeout bounds each server request.
	Timeout time.Duration `koanf:"timeout" json:"timeout"`
	// CAFile adds a CA to the system roots for https servers.
	CAFile string `koanf:"ca_file" json:"ca_file,omitempty"`
}

// Default returns the built-in settings.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:  "http://127.0.0.1:8080",
		Output:  string(output.FormatTable),
		Timeout: 30 * time.Second,
	}
}

// DefaultPath returns ~/.websec/cli.yaml, or "" without a home directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".websec", "cli.yaml")
}

// Load reads path over the defaults, then applies environment overrides
// and the non-empty entries of overrides (dotted koanf keys). A missing
// file at the default path is not an error; a missing explicit path is.
func Load(path string, overrides map[string]any) (*CLIConfig, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if !explicit && errors.Is(err, os.ErrNotExist) {
				path = ""
			} else {
				return nil, fmt.Errorf("config file: %w", err)
			}
		}
	}

	l := confloader.NewLoader(confloader.WithConfigFile(path), confloader.WithEnvPrefix(EnvPrefix))
	set := make(map[string]any, len(overrides))
	for k, v := range overrides {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		set[k] = v
	}
	if len(set) > 0 {
		if err := l.LoadMap(set); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	if err := l.Load(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c *CLIConfig) Validate() error {
	if c.Server == "" {
		return errors.New("server must not be empty")
	}
	if _, err := output.ParseFormat(c.Output); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
