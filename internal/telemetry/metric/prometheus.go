package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "websec"

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Block reasons for RequestsBlocked.
const (
	ReasonIPDenied            = "ip_denied"
	ReasonCSRF                = "csrf"
	ReasonClientMismatch      = "client_mismatch"
	ReasonFingerprintMismatch = "fingerprint_mismatch"
	ReasonRateLimited         = "rate_limited"
)

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Primitives
	TokensIssued   *prometheus.CounterVec
	HashOperations *prometheus.CounterVec
	HashDuration   *prometheus.HistogramVec
	WeakRNGSources prometheus.Counter

	// Authentication
	Logins          *prometheus.CounterVec
	SessionsCreated prometheus.Counter
	SessionsRevoked prometheus.Counter

	// HTTP
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestsBlocked *prometheus.CounterVec
	HTTPSRedirects  prometheus.Counter

	// Config
	ConfigReloads *prometheus.CounterVec
}

// NewRegistry creates and registers every websec metric together with the
// Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		TokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "issued_total",
			Help:      "Tokens generated, by encoding.",
		}, []string{"encoding"}),
		HashOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hash",
			Name:      "operations_total",
			Help:      "Credential hash computations, by algorithm and result.",
		}, []string{"algorithm", "result"}),
		HashDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hash",
			Name:      "duration_seconds",
			Help:      "Time spent deriving a credential hash.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"algorithm"}),
		WeakRNGSources: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rng",
			Name:      "weak_sources_total",
			Help:      "Random sources that fell back to the seeded PRNG.",
		}),

		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts, by result.",
		}, []string{"result"}),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "created_total",
			Help:      "Sessions opened by a successful login.",
		}),
		SessionsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "revoked_total",
			Help:      "Sessions closed by logout or client mismatch.",
		}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by method, route and status code.",
		}, []string{"method", "route", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		RequestsBlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "blocked_total",
			Help:      "Requests rejected by a security filter, by reason.",
		}, []string{"reason"}),
		HTTPSRedirects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "https_redirects_total",
			Help:      "Plain HTTP requests redirected to HTTPS.",
		}),

		ConfigReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "config",
			Name:      "reloads_total",
			Help:      "Configuration hot reloads, by result.",
		}, []string{"result"}),
	}

	r.reg.MustRegister(
		r.TokensIssued,
		r.HashOperations,
		r.HashDuration,
		r.WeakRNGSources,
		r.Logins,
		r.SessionsCreated,
		r.SessionsRevoked,
		r.RequestsTotal,
		r.RequestDuration,
		r.RequestsBlocked,
		r.HTTPSRedirects,
		r.ConfigReloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Register adds extra collectors (storage engines, Collector) to the
// registry.
func (r *Registry) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := r.reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ObserveHash records one hash computation.
func (r *Registry) ObserveHash(algorithm string, elapsed time.Duration, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	r.HashOperations.WithLabelValues(algorithm, result).Inc()
	r.HashDuration.WithLabelValues(algorithm).Observe(elapsed.Seconds())
}

// ObserveLogin records one login attempt.
func (r *Registry) ObserveLogin(ok bool) {
	if ok {
		r.Logins.WithLabelValues(ResultSuccess).Inc()
		return
	}
	r.Logins.WithLabelValues(ResultFailure).Inc()
}

// Blocked records a request rejected for reason.
func (r *Registry) Blocked(reason string) {
	r.RequestsBlocked.WithLabelValues(reason).Inc()
}
