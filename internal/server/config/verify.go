package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strings"

	"github.com/yndnr/websec-go/internal/telemetry/logger"
	"github.com/yndnr/websec-go/pkg/hashing"
)

// Verify validates the configuration. It returns every violation found,
// joined.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifySecurity(&cfg.Security),
		verifyRedirectHosts(cfg),
		verifySession(&cfg.Session),
		verifyHash(&cfg.Hash),
		verifyAuth(&cfg.Auth),
		verifyStorage(&cfg.Storage),
		verifyMetrics(&cfg.Metrics),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return fmt.Errorf("server.addr %q: %w", cfg.Addr, err)
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return errors.New("server.tls_cert_file and server.tls_key_file must be set together")
	}
	for _, f := range []string{cfg.TLSCertFile, cfg.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("server tls file: %w", err)
		}
	}
	return nil
}

func verifySecurity(cfg *SecuritySection) error {
	r := cfg.HTTPSRedirect
	if r.Enabled {
		if r.StatusCode < 300 || r.StatusCode > 399 {
			return fmt.Errorf("security.https_redirect.status_code %d is not a 3xx code", r.StatusCode)
		}
		if r.Port < 1 || r.Port > 65535 {
			return fmt.Errorf("security.https_redirect.port %d out of range", r.Port)
		}
	}
	if _, err := ParseAllowList(cfg.Access.AllowList); err != nil {
		return fmt.Errorf("security.access.allow_list: %w", err)
	}
	return nil
}

func verifySession(cfg *SessionSection) error {
	if cfg.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if cfg.CookieName == "" || cfg.FingerprintCookie == "" {
		return errors.New("session cookie names are required")
	}
	if cfg.CookieName == cfg.FingerprintCookie {
		return errors.New("session.cookie_name and session.fingerprint_cookie must differ")
	}
	return nil
}

func verifyHash(cfg *HashSection) error {
	h, err := NewHasher(cfg)
	if err != nil {
		return err
	}
	if h.Algorithm() == hashing.AlgorithmArgon2id && cfg.MemoryCost < 8*cfg.Parallelism {
		return errors.New("hash.memory_cost must be at least 8 * hash.parallelism")
	}
	return nil
}

func verifyAuth(cfg *AuthSection) error {
	if cfg.LoginRate <= 0 {
		return errors.New("auth.login_rate must be positive")
	}
	if cfg.LoginBurst < 1 {
		return errors.New("auth.login_burst must be at least 1")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Credentials {
	case BackendMemory:
	case BackendBadger:
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required for the badger backend")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return fmt.Errorf("cannot create data directory: %w", err)
		}
	case BackendRedis:
		if cfg.RedisURL == "" {
			return errors.New("storage.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.credentials: unknown backend %q", cfg.Credentials)
	}

	switch cfg.Sessions {
	case BackendMemory:
		if cfg.SweepInterval <= 0 {
			return errors.New("storage.sweep_interval must be positive")
		}
	case BackendRedis:
		if cfg.RedisURL == "" {
			return errors.New("storage.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.sessions: unknown backend %q", cfg.Sessions)
	}
	return nil
}

func verifyMetrics(cfg *MetricsSection) error {
	if cfg.Enabled && !strings.HasPrefix(cfg.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", cfg.Path)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level: unknown level %q", cfg.Level)
	}
	return nil
}

func verifyRedirectHosts(cfg *ServerConfig) error {
	r := cfg.Security.HTTPSRedirect
	if !r.Enabled {
		return nil
	}
	if h := RedirectHost(cfg); !validHostName(h) {
		return fmt.Errorf("security.https_redirect.host %q is not a host name or IP address", h)
	}
	for _, h := range ParseHostList(r.AllowedHosts) {
		if !validHostName(h) {
			return fmt.Errorf("security.https_redirect.allowed_hosts: %q is not a host name or IP address", h)
		}
	}
	return nil
}

// RedirectHost returns the host name used in HTTPS redirect URLs:
// security.https_redirect.host, else the host part of server.addr. An
// empty or unspecified listen address yields localhost.
func RedirectHost(cfg *ServerConfig) string {
	if h := strings.Trim(strings.TrimSpace(cfg.Security.HTTPSRedirect.Host), "[]"); h != "" {
		return h
	}
	host, _, err := net.SplitHostPort(cfg.Server.Addr)
	if err != nil || host == "" {
		return "localhost"
	}
	if a, err := netip.ParseAddr(host); err == nil && a.IsUnspecified() {
		return "localhost"
	}
	return host
}

// ParseHostList splits host names separated by commas or newlines and
// lower-cases them.
func ParseHostList(s string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	}) {
		if f = strings.ToLower(strings.Trim(strings.TrimSpace(f), "[]")); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func validHostName(h string) bool {
	if _, err := netip.ParseAddr(h); err == nil {
		return true
	}
	if h == "" || len(h) > 253 {
		return false
	}
	for _, label := range strings.Split(strings.TrimSuffix(h, "."), ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, c := range label {
			if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-') {
				return false
			}
		}
	}
	return true
}

// NewHasher builds the configured credential hasher.
func NewHasher(cfg *HashSection) (hashing.Hasher, error) {
	h, err := hashing.New(cfg.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("hash.algorithm: %w", err)
	}
	var params map[string]int
	switch h.Algorithm() {
	case hashing.AlgorithmPBKDF2:
		params = map[string]int{hashing.ParamIterationCount: cfg.Iterations}
	case hashing.AlgorithmArgon2id:
		params = map[string]int{
			hashing.ParamTimeCost:    cfg.TimeCost,
			hashing.ParamMemoryCost:  cfg.MemoryCost,
			hashing.ParamParallelism: cfg.Parallelism,
		}
	}
	for name, v := range params {
		if err := h.SetParameter(name, v); err != nil {
			return nil, fmt.Errorf("hash: %w", err)
		}
	}
	return h, nil
}

// ParseAllowList parses IPs and CIDR blocks separated by commas or
// newlines. Bare addresses become single-address prefixes.
func ParseAllowList(s string) ([]netip.Prefix, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	var out []netip.Prefix
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if strings.Contains(f, "/") {
			p, err := netip.ParsePrefix(f)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(f)
		if err != nil {
			return nil, err
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}
