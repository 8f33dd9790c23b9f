package config

import (
	"time"

	"github.com/yndnr/websec-go/pkg/hashing"
	"github.com/yndnr/websec-go/pkg/salt"
	"github.com/yndnr/websec-go/pkg/token"
)

// Default configuration values.
const (
	DefaultAddr            = "127.0.0.1:8080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	DefaultRedirectStatus = 301
	DefaultHTTPSPort      = 443

	DefaultHeaders = "X-Content-Type-Options: nosniff\n" +
		"X-Frame-Options: DENY\n" +
		"Referrer-Policy: no-referrer\n" +
		"Cache-Control: no-store\n"

	DefaultSessionTTL        = 30 * time.Minute
	DefaultCookieName        = "websec_session"
	DefaultFingerprintCookie = "websec_fp"

	DefaultLoginRate   = 0.2
	DefaultLoginBurst  = 5
	DefaultLimiterIdle = 15 * time.Minute

	DefaultDataDir       = "/var/lib/websec-server"
	DefaultSweepInterval = time.Minute

	DefaultMetricsPath = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Addr:            DefaultAddr,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Security: SecuritySection{
			HTTPSRedirect: HTTPSRedirectConfig{
				StatusCode: DefaultRedirectStatus,
				Port:       DefaultHTTPSPort,
			},
			Headers: DefaultHeaders,
			Access: AccessConfig{
				AlwaysAllowLocal: true,
				LogBlocked:       true,
			},
		},
		Session: SessionSection{
			TTL:               DefaultSessionTTL,
			TokenLength:       token.DefaultLength,
			CSRFLength:        token.MinLength,
			FingerprintLength: token.DefaultLength,
			CookieName:        DefaultCookieName,
			FingerprintCookie: DefaultFingerprintCookie,
			CookieSecure:      true,
		},
		Hash: HashSection{
			Algorithm:   "pbkdf2",
			Iterations:  hashing.DefaultIterationCount,
			TimeCost:    hashing.DefaultTimeCost,
			MemoryCost:  hashing.DefaultMemoryCost,
			Parallelism: hashing.DefaultParallelism,
			SaltLength:  salt.DefaultLength,
		},
		Auth: AuthSection{
			LoginRate:   DefaultLoginRate,
			LoginBurst:  DefaultLoginBurst,
			LimiterIdle: DefaultLimiterIdle,
		},
		Storage: StorageSection{
			Credentials:   BackendMemory,
			DataDir:       DefaultDataDir,
			Sessions:      BackendMemory,
			SweepInterval: DefaultSweepInterval,
		},
		Metrics: MetricsSection{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
