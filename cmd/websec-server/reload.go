package main

import (
	"github.com/yndnr/websec-go/internal/infra/confloader"
	"github.com/yndnr/websec-go/internal/server/config"
	"github.com/yndnr/websec-go/internal/server/httpserver"
	"github.com/yndnr/websec-go/internal/telemetry/logger"
	"github.com/yndnr/websec-go/internal/telemetry/metric"
)

// reloader applies the hot-reloadable part of a changed configuration:
// response headers, the IP allow list and the log level. A configuration
// that fails to load or verify is rejected whole.
type reloader struct {
	headers *httpserver.ResponseHeaders
	access  *httpserver.AccessControl
	metrics *metric.Registry
	log     logger.Logger
}

func (r *reloader) reload(loader *confloader.Loader) {
	cfg, err := config.Reload(loader)
	if err == nil {
		err = r.apply(cfg)
	}
	if err != nil {
		r.metrics.ConfigReloads.WithLabelValues(metric.ResultFailure).Inc()
		r.log.Error("configuration reload rejected", "error", err)
		return
	}
	r.metrics.ConfigReloads.WithLabelValues(metric.ResultSuccess).Inc()
	r.log.Info("configuration reloaded",
		"headers", len(r.headers.Headers()),
		"access_enabled", r.access.Policy().Enabled,
		"log_level", cfg.Log.Level)
}

func (r *reloader) apply(cfg *config.ServerConfig) error {
	policy, err := accessPolicy(cfg)
	if err != nil {
		return err
	}
	r.headers.Set(httpserver.ParseHeaders(cfg.Security.Headers))
	r.access.SetPolicy(policy)
	logger.SetLevel(cfg.Log.Level)
	return nil
}
