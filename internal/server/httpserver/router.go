package httpserver

import (
	"net/http"

	"github.com/yndnr/websec-go/internal/server/httpserver/handler"
	"github.com/yndnr/websec-go/internal/telemetry/metric"
)

// RouterConfig holds everything NewRouter wires together.
type RouterConfig struct {
	Handler *handler.Handler
	Auth    Authenticator
	Binding BindingConfig

	// Metrics records request metrics. When MetricsPath is set it is also
	// served there.
	Metrics     *metric.Registry
	MetricsPath string

	// Redirect enables HTTPSRedirect when non-nil.
	Redirect *RedirectConfig

	// Headers and Access are optional and may be updated while serving.
	Headers *ResponseHeaders
	Access  *AccessControl
}

// NewRouter builds the route table and the filter chain in front of it.
func NewRouter(cfg *RouterConfig) http.Handler {
	h := cfg.Handler
	mux := http.NewServeMux()

	route := func(pattern string, hf http.HandlerFunc, mws ...Middleware) {
		mws = append([]Middleware{Instrument(pattern, cfg.Metrics)}, mws...)
		mux.Handle(pattern, Chain(hf, mws...))
	}
	bound := ClientBinding(cfg.Auth, cfg.Binding)
	csrf := CSRF(cfg.Metrics)

	route("GET /health", h.Health)
	route("POST /signup", h.Signup)
	route("POST /login", h.Login)
	route("GET /logout", h.Logout)
	route("POST /logout", h.Logout)
	route("GET /session", h.Session, bound)
	route("POST /password", h.ChangePassword, bound, csrf)

	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		mux.Handle("GET "+cfg.MetricsPath, cfg.Metrics.Handler())
	}

	filters := []Middleware{Recover(), RequestID()}
	if cfg.Headers != nil {
		filters = append(filters, cfg.Headers.Middleware())
	}
	if cfg.Redirect != nil {
		filters = append(filters, HTTPSRedirect(*cfg.Redirect, cfg.Metrics))
	}
	if cfg.Access != nil {
		filters = append(filters, cfg.Access.Middleware())
	}
	return Chain(mux, filters...)
}
