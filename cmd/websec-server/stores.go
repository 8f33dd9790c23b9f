package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/yndnr/websec-go/internal/infra/tlsroots"
	"github.com/yndnr/websec-go/internal/server/config"
	"github.com/yndnr/websec-go/internal/storage"
	"github.com/yndnr/websec-go/internal/storage/memory"
	"github.com/yndnr/websec-go/internal/storage/redisstore"
	"github.com/yndnr/websec-go/internal/telemetry/logger"
	"github.com/yndnr/websec-go/internal/telemetry/metric"
)

type stores struct {
	credentials storage.CredentialStore
	sessions    storage.SessionStore
}

// Close closes the session store, then the credential store.
func (s *stores) Close() error {
	var errs []error
	if s.sessions != nil {
		errs = append(errs, s.sessions.Close())
	}
	if s.credentials != nil {
		errs = append(errs, s.credentials.Close())
	}
	return errors.Join(errs...)
}

func openStores(ctx context.Context, cfg *config.StorageSection, log logger.Logger, metrics *metric.Registry) (*stores, error) {
	var redisTLS *tls.Config
	if cfg.RedisCAFile != "" {
		c, err := tlsroots.ClientConfig(cfg.RedisCAFile)
		if err != nil {
			return nil, fmt.Errorf("redis CA: %w", err)
		}
		redisTLS = c
	}

	s := &stores{}
	switch cfg.Credentials {
	case config.BackendBadger:
		bc := storage.DefaultBadgerConfig(cfg.DataDir)
		db, err := storage.OpenBadger(bc, log.With("component", "badger"))
		if err != nil {
			return nil, err
		}
		if err := metrics.Register(db.Collectors()...); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("register badger metrics: %w", err)
		}
		s.credentials = db
	case config.BackendRedis:
		client, err := redisstore.Open(ctx, cfg.RedisURL, redisTLS)
		if err != nil {
			return nil, err
		}
		s.credentials = redisstore.NewCredentialStore(client)
	default:
		s.credentials = memory.NewCredentialStore()
	}

	switch cfg.Sessions {
	case config.BackendRedis:
		client, err := redisstore.Open(ctx, cfg.RedisURL, redisTLS)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.sessions = redisstore.NewSessionStore(client)
	default:
		s.sessions = memory.NewSessionStore(
			memory.WithSweepInterval(cfg.SweepInterval),
			memory.WithLogger(log.With("component", "sessions")),
		)
	}

	log.Info("storage ready", "credentials", cfg.Credentials, "sessions", cfg.Sessions)
	return s, nil
}
