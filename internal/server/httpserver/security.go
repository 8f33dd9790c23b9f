package httpserver

import (
	"bufio"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/yndnr/websec-go/internal/core/domain"
	"github.com/yndnr/websec-go/internal/server/httpserver/handler"
	"github.com/yndnr/websec-go/internal/telemetry/logger"
	"github.com/yndnr/websec-go/internal/telemetry/metric"
	"github.com/yndnr/websec-go/pkg/client"
)

// HTTPS redirect defaults.
const (
	DefaultRedirectStatus = http.StatusMovedPermanently
	DefaultHTTPSPort      = 443
	DefaultRedirectHost   = "localhost"
)

// RedirectConfig configures HTTPSRedirect.
type RedirectConfig struct {
	// StatusCode is the redirect status. Zero means 301.
	StatusCode int
	// Port is the HTTPS port. Zero means 443, which is left out of the URL.
	Port int
	// IncludeQueryString appends the query string to redirected GETs.
	IncludeQueryString bool
	// TrustProxy treats X-Forwarded-Proto: https as already secure.
	TrustProxy bool
	// Host is the server name used in redirect URLs. Empty means localhost.
	Host string
	// AllowedHosts lists request Host names that are redirected to
	// themselves. Any other Host gets Host. Matching ignores case and port.
	AllowedHosts []string
}

// HTTPSRedirect sends plain-HTTP requests to the same path over HTTPS.
func HTTPSRedirect(cfg RedirectConfig, metrics *metric.Registry) Middleware {
	if cfg.StatusCode == 0 {
		cfg.StatusCode = DefaultRedirectStatus
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultHTTPSPort
	}
	if cfg.Host == "" {
		cfg.Host = DefaultRedirectHost
	}
	cfg.Host = strings.Trim(cfg.Host, "[]")
	allowed := make(map[string]struct{}, len(cfg.AllowedHosts))
	for _, h := range cfg.AllowedHosts {
		allowed[strings.ToLower(strings.Trim(h, "[]"))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSecure(r, cfg.TrustProxy) {
				next.ServeHTTP(w, r)
				return
			}
			if metrics != nil {
				metrics.HTTPSRedirects.Inc()
			}
			http.Redirect(w, r, httpsURL(r, redirectHost(r, cfg.Host, allowed), cfg), cfg.StatusCode)
		})
	}
}

func isSecure(r *http.Request, trustProxy bool) bool {
	if r.TLS != nil {
		return true
	}
	return trustProxy && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// redirectHost returns the request's host name when it is allowed, else
// the configured one. The request Host header is client controlled.
func redirectHost(r *http.Request, fallback string, allowed map[string]struct{}) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))
	if _, ok := allowed[host]; ok && host != "" {
		return host
	}
	return fallback
}

func httpsURL(r *http.Request, host string, cfg RedirectConfig) string {
	var b strings.Builder
	b.WriteString("https://")
	if cfg.Port != DefaultHTTPSPort {
		b.WriteString(net.JoinHostPort(host, strconv.Itoa(cfg.Port)))
	} else if strings.Contains(host, ":") {
		b.WriteString("[" + host + "]")
	} else {
		b.WriteString(host)
	}
	b.WriteString(r.URL.EscapedPath())
	if cfg.IncludeQueryString && r.Method == http.MethodGet && r.URL.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(r.URL.RawQuery)
	}
	return b.String()
}

// Header is one configured response header.
type Header struct {
	Name  string
	Value string
}

// ParseHeaders reads "Name: value" pairs, one per line. Blank lines and
// lines without a colon are skipped. A repeated name keeps its first
// position and its last value.
func ParseHeaders(s string) []Header {
	var out []Header
	index := make(map[string]int)
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		name, value, ok := strings.Cut(line, ":")
		if line == "" || !ok {
			continue
		}
		name = http.CanonicalHeaderKey(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if i, seen := index[name]; seen {
			out[i].Value = value
			continue
		}
		index[name] = len(out)
		out = append(out, Header{Name: name, Value: value})
	}
	return out
}

// ResponseHeaders sets a configurable list of headers on every response.
// The list can be replaced while serving.
type ResponseHeaders struct {
	headers atomic.Pointer[[]Header]
}

// NewResponseHeaders creates a ResponseHeaders from ParseHeaders output.
func NewResponseHeaders(headers []Header) *ResponseHeaders {
	rh := &ResponseHeaders{}
	rh.Set(headers)
	return rh
}

// Set replaces the header list.
func (rh *ResponseHeaders) Set(headers []Header) {
	cp := append([]Header(nil), headers...)
	rh.headers.Store(&cp)
}

// Headers returns the current header list.
func (rh *ResponseHeaders) Headers() []Header {
	return *rh.headers.Load()
}

// Middleware sets the headers before calling next.
func (rh *ResponseHeaders) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, hdr := range *rh.headers.Load() {
				h.Set(hdr.Name, hdr.Value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// blockedCacheControl lets clients cache a 403 for half an hour.
const blockedCacheControl = "private, max-age=1800, must-revalidate"

// AccessPolicy decides which client addresses may reach the server.
type AccessPolicy struct {
	// Enabled turns the filter on. A disabled policy allows everyone.
	Enabled bool
	// Allow lists the permitted addresses and networks.
	Allow []netip.Prefix
	// AlwaysAllowLocal admits clients whose address equals the address
	// they connected to.
	AlwaysAllowLocal bool
	// LogBlocked logs every rejected request.
	LogBlocked bool
	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy bool
}

// Allows reports whether a client at remote, connected to local, passes.
func (p *AccessPolicy) Allows(remote, local netip.Addr) bool {
	if !p.Enabled {
		return true
	}
	if !remote.IsValid() {
		return false
	}
	remote = remote.Unmap()
	if p.AlwaysAllowLocal && local.IsValid() && remote == local.Unmap() {
		return true
	}
	for _, prefix := range p.Allow {
		if prefix.Contains(remote) {
			return true
		}
	}
	return false
}

// AccessControl rejects requests from addresses outside the allow list.
// The policy can be replaced while serving.
type AccessControl struct {
	policy  atomic.Pointer[AccessPolicy]
	metrics *metric.Registry
}

// NewAccessControl creates an AccessControl enforcing p.
func NewAccessControl(p AccessPolicy, metrics *metric.Registry) *AccessControl {
	ac := &AccessControl{metrics: metrics}
	ac.SetPolicy(p)
	return ac
}

// SetPolicy replaces the policy.
func (ac *AccessControl) SetPolicy(p AccessPolicy) {
	p.Allow = append([]netip.Prefix(nil), p.Allow...)
	ac.policy.Store(&p)
}

// Policy returns the current policy.
func (ac *AccessControl) Policy() AccessPolicy {
	return *ac.policy.Load()
}

// Middleware enforces the policy.
func (ac *AccessControl) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := ac.policy.Load()
			if !p.Enabled {
				next.ServeHTTP(w, r)
				return
			}
			remoteIP := client.RemoteIP(r, p.TrustProxy)
			remote, _ := netip.ParseAddr(remoteIP)
			if p.Allows(remote, localAddr(r)) {
				next.ServeHTTP(w, r)
				return
			}

			if ac.metrics != nil {
				ac.metrics.Blocked(metric.ReasonIPDenied)
			}
			if p.LogBlocked {
				logger.L(r.Context()).Info("request blocked",
					"ip", remoteIP,
					"method", r.Method,
					"url", r.URL.String(),
				)
			}
			w.Header().Set("Cache-Control", blockedCacheControl)
			handler.WriteError(w, r, domain.ErrIPNotAllowed)
		})
	}
}

// localAddr returns the server address the request arrived on.
func localAddr(r *http.Request) netip.Addr {
	addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr)
	if !ok {
		return netip.Addr{}
	}
	ap, err := netip.ParseAddrPort(addr.String())
	if err != nil {
		return netip.Addr{}
	}
	return ap.Addr()
}
