package config

import "time"

// ServerConfig is the root configuration for websec-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Security SecuritySection `koanf:"security"`
	Session  SessionSection  `koanf:"session"`
	Hash     HashSection     `koanf:"hash"`
	Auth     AuthSection     `koanf:"auth"`
	Storage  StorageSection  `koanf:"storage"`
	Metrics  MetricsSection  `koanf:"metrics"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures the HTTP listener.
type ServerSection struct {
	Addr            string        `koanf:"addr"`
	TLSCertFile     string        `koanf:"tls_cert_file"`
	TLSKeyFile      string        `koanf:"tls_key_file"`
	TrustProxy      bool          `koanf:"trust_proxy"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// TLSEnabled reports whether both certificate and key are configured.
func (s ServerSection) TLSEnabled() bool {
	return s.TLSCertFile != "" && s.TLSKeyFile != ""
}

// SecuritySection configures the request filters. Headers and Access are
// hot-reloadable.
type SecuritySection struct {
	HTTPSRedirect HTTPSRedirectConfig `koanf:"https_redirect"`
	// Headers holds line separated "Name: value" pairs set on every
	// response.
	Headers string       `koanf:"headers"`
	Access  AccessConfig `koanf:"access"`
}

// HTTPSRedirectConfig configures redirection of plain HTTP to HTTPS.
type HTTPSRedirectConfig struct {
	Enabled            bool `koanf:"enabled"`
	StatusCode         int  `koanf:"status_code"`
	Port               int  `koanf:"port"`
	IncludeQueryString bool `koanf:"include_query_string"`
	// Host is the server name put in redirect URLs. Empty means the host
	// part of server.addr.
	Host string `koanf:"host"`
	// AllowedHosts holds request Host names, comma or newline separated,
	// that are redirected to themselves.
	AllowedHosts string `koanf:"allowed_hosts"`
}

// AccessConfig configures IP-based access control.
type AccessConfig struct {
	Enabled bool `koanf:"enabled"`
	// AllowList holds IPs and CIDR blocks, comma or newline separated.
	AllowList        string `koanf:"allow_list"`
	AlwaysAllowLocal bool   `koanf:"always_allow_local"`
	LogBlocked       bool   `koanf:"log_blocked"`
}

// SessionSection configures login sessions and their tokens.
type SessionSection struct {
	TTL               time.Duration `koanf:"ttl"`
	TokenLength       int           `koanf:"token_length"`
	CSRFLength        int           `koanf:"csrf_length"`
	FingerprintLength int           `koanf:"fingerprint_length"`
	CookieName        string        `koanf:"cookie_name"`
	FingerprintCookie string        `koanf:"fingerprint_cookie"`
	CookieSecure      bool          `koanf:"cookie_secure"`
}

// HashSection configures credential hashing.
type HashSection struct {
	// Algorithm is "pbkdf2" or "argon2".
	Algorithm   string `koanf:"algorithm"`
	Iterations  int    `koanf:"iterations"`
	TimeCost    int    `koanf:"time_cost"`
	MemoryCost  int    `koanf:"memory_cost"`
	Parallelism int    `koanf:"parallelism"`
	SaltLength  int    `koanf:"salt_length"`
	// Pepper is an application-wide secret appended to every salt.
	Pepper string `koanf:"pepper"`
}

// AuthSection configures login throttling.
type AuthSection struct {
	// LoginRate is the sustained login attempts per second per username.
	LoginRate  float64 `koanf:"login_rate"`
	LoginBurst int     `koanf:"login_burst"`
	// LimiterIdle is how long an untouched per-username limiter is kept.
	LimiterIdle time.Duration `koanf:"limiter_idle"`
}

// StorageSection selects credential and session backends.
type StorageSection struct {
	// Credentials is "memory", "badger" or "redis".
	Credentials string `koanf:"credentials"`
	DataDir     string `koanf:"data_dir"`
	// Sessions is "memory" or "redis".
	Sessions string `koanf:"sessions"`
	// RedisURL is shared by every redis backend.
	RedisURL string `koanf:"redis_url"`
	// RedisCAFile adds a CA to the system roots for rediss:// URLs.
	RedisCAFile   string        `koanf:"redis_ca_file"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
