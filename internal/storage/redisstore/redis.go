// Package redisstore keeps sessions and credentials in Redis so several
// server instances can share logins.
//
// Sessions are stored as JSON under "websec:session:<id>" with a Redis TTL
// matching the session expiry, so Redis drops them on its own. Credentials
// live under "websec:cred:<username>" without a TTL.
package redisstore

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is prepended to every key.
const DefaultPrefix = "websec:"

// Open parses a redis:// or rediss:// URL, connects and pings the server.
// tlsConfig, when non-nil, replaces the TLS settings derived from the URL.
func Open(ctx context.Context, url string, tlsConfig *tls.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if tlsConfig != nil {
		opts.TLSConfig = tlsConfig
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// countKeys counts keys matching pattern with SCAN, which does not block
// the server the way KEYS does.
func countKeys(ctx context.Context, client redis.UniversalClient, pattern string) (int, error) {
	n := 0
	iter := client.Scan(ctx, 0, pattern, 256).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	return n, nil
}
