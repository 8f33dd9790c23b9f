package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/yndnr/websec-go/internal/core/service"
	"github.com/yndnr/websec-go/internal/infra/buildinfo"
	"github.com/yndnr/websec-go/internal/infra/confloader"
	"github.com/yndnr/websec-go/internal/infra/shutdown"
	"github.com/yndnr/websec-go/internal/infra/tlsroots"
	"github.com/yndnr/websec-go/internal/server/config"
	"github.com/yndnr/websec-go/internal/server/httpserver"
	"github.com/yndnr/websec-go/internal/server/httpserver/handler"
	"github.com/yndnr/websec-go/internal/telemetry/logger"
	"github.com/yndnr/websec-go/internal/telemetry/metric"
	"github.com/yndnr/websec-go/pkg/rng"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("websec-server " + buildinfo.String())
		return nil
	}

	cfg, loader, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	log.Info("starting websec-server",
		"version", buildinfo.Get().Version,
		"commit", buildinfo.Get().Commit,
		"config", *configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	metrics := metric.NewRegistry()
	rng.OnFallback(func(int64) {
		metrics.WeakRNGSources.Inc()
		log.Warn("random source fell back to a non-cryptographic generator")
	})

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout, log)

	stores, err := openStores(ctx, &cfg.Storage, log, metrics)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		return stores.Close()
	})
	if err := metrics.Register(metric.NewCollector(stores.sessions, stores.credentials)); err != nil {
		return fmt.Errorf("register store metrics: %w", err)
	}

	hasher, err := config.NewHasher(&cfg.Hash)
	if err != nil {
		return err
	}
	auth := service.NewAuthService(stores.credentials, stores.sessions, hasher, serviceConfig(cfg),
		service.WithMetrics(metrics),
		service.WithLogger(log),
	)

	h := handler.New(auth, handler.Config{
		CookieName:        cfg.Session.CookieName,
		FingerprintCookie: cfg.Session.FingerprintCookie,
		CookieSecure:      cfg.Session.CookieSecure,
		TrustProxy:        cfg.Server.TrustProxy,
		Version:           buildinfo.Get().Version,
	}, log)
	h.AddCheck("sessions", countCheck(stores.sessions))
	h.AddCheck("credentials", countCheck(stores.credentials))

	policy, err := accessPolicy(cfg)
	if err != nil {
		return err
	}
	headers := httpserver.NewResponseHeaders(httpserver.ParseHeaders(cfg.Security.Headers))
	access := httpserver.NewAccessControl(policy, metrics)

	routerCfg := &httpserver.RouterConfig{
		Handler: h,
		Auth:    auth,
		Binding: httpserver.BindingConfig{
			CookieName:        cfg.Session.CookieName,
			FingerprintCookie: cfg.Session.FingerprintCookie,
			TrustProxy:        cfg.Server.TrustProxy,
		},
		Metrics: metrics,
		Headers: headers,
		Access:  access,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	if r := cfg.Security.HTTPSRedirect; r.Enabled {
		routerCfg.Redirect = &httpserver.RedirectConfig{
			StatusCode:         r.StatusCode,
			Port:               r.Port,
			IncludeQueryString: r.IncludeQueryString,
			TrustProxy:         cfg.Server.TrustProxy,
			Host:               config.RedirectHost(cfg),
			AllowedHosts:       config.ParseHostList(r.AllowedHosts),
		}
	}

	opts := httpserver.Options{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	var keypair *tlsroots.Keypair
	if cfg.Server.TLSEnabled() {
		keypair, err = tlsroots.NewKeypair(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile, log)
		if err != nil {
			return err
		}
		opts.TLSConfig = keypair.ServerConfig()
	}
	httpServer := httpserver.New(cfg.Server.Addr, httpserver.NewRouter(routerCfg), opts)

	watcher, err := watchConfig(loader, keypair, &reloader{
		headers: headers,
		access:  access,
		metrics: metrics,
		log:     log,
	}, log)
	if err != nil {
		return err
	}
	if watcher != nil {
		shutdownHandler.OnShutdown("config watcher", func(context.Context) error {
			return watcher.Stop()
		})
	}

	listener, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	shutdownHandler.OnShutdown("http server", httpServer.Shutdown)

	go func() {
		log.Info("HTTP server listening", "addr", listener.Addr().String(), "tls", httpServer.TLS())
		if err := httpServer.Serve(listener); err != nil {
			log.Error("HTTP server error", "error", err)
			cancel(err)
		}
	}()

	log.Info("server started")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	log.Info("server stopped gracefully")
	return nil
}

// serviceConfig maps the configuration onto AuthService settings.
func serviceConfig(cfg *config.ServerConfig) service.Config {
	sc := service.DefaultConfig()
	sc.SessionTTL = cfg.Session.TTL
	sc.TokenLength = cfg.Session.TokenLength
	sc.CSRFLength = cfg.Session.CSRFLength
	sc.FingerprintLength = cfg.Session.FingerprintLength
	sc.SaltLength = cfg.Hash.SaltLength
	if cfg.Hash.Pepper != "" {
		sc.Pepper = []byte(cfg.Hash.Pepper)
	}
	sc.LoginRate = rate.Limit(cfg.Auth.LoginRate)
	sc.LoginBurst = cfg.Auth.LoginBurst
	sc.LimiterIdle = cfg.Auth.LimiterIdle
	return sc
}

// accessPolicy builds the IP filter policy from the configuration.
func accessPolicy(cfg *config.ServerConfig) (httpserver.AccessPolicy, error) {
	allow, err := config.ParseAllowList(cfg.Security.Access.AllowList)
	if err != nil {
		return httpserver.AccessPolicy{}, fmt.Errorf("security.access.allow_list: %w", err)
	}
	return httpserver.AccessPolicy{
		Enabled:          cfg.Security.Access.Enabled,
		Allow:            allow,
		AlwaysAllowLocal: cfg.Security.Access.AlwaysAllowLocal,
		LogBlocked:       cfg.Security.Access.LogBlocked,
		TrustProxy:       cfg.Server.TrustProxy,
	}, nil
}

func countCheck(s metric.Sizer) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.Count(ctx)
		return err
	}
}

// watchConfig starts a file watcher when there is a config file or a
// certificate to follow. It returns nil when there is nothing to watch.
func watchConfig(loader *confloader.Loader, keypair *tlsroots.Keypair, r *reloader, log logger.Logger) (*confloader.Watcher, error) {
	path := loader.FilePath()
	if path == "" && keypair == nil {
		return nil, nil
	}
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if path != "" {
		if err := w.Watch(path); err != nil {
			_ = w.Stop()
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
		abs, _ := filepath.Abs(path)
		w.OnChange(func(changed string) {
			if c, _ := filepath.Abs(changed); c != abs {
				return
			}
			r.reload(loader)
		})
	}
	if keypair != nil {
		if err := keypair.Watch(w); err != nil {
			_ = w.Stop()
			return nil, fmt.Errorf("watch certificate: %w", err)
		}
	}
	w.StartAsync()
	return w, nil
}
