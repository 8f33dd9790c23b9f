package httpserver

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/websec-go/internal/telemetry/metric"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestHTTPSRedirect(t *testing.T) {
	tests := []struct {
		name     string
		cfg      RedirectConfig
		method   string
		target   string
		host     string
		location string
	}{
		{"default port", RedirectConfig{Host: "example.com"}, http.MethodGet, "/a/b", "example.com:8080", "https://example.com/a/b"},
		{"custom port", RedirectConfig{Host: "example.com", Port: 8443}, http.MethodGet, "/a", "example.com", "https://example.com:8443/a"},
		{"query dropped", RedirectConfig{Host: "example.com"}, http.MethodGet, "/a?x=1", "example.com", "https://example.com/a"},
		{"query kept", RedirectConfig{Host: "example.com", IncludeQueryString: true}, http.MethodGet, "/a?x=1", "example.com", "https://example.com/a?x=1"},
		{"query only on get", RedirectConfig{Host: "example.com", IncludeQueryString: true}, http.MethodPost, "/a?x=1", "example.com", "https://example.com/a"},
		{"ipv6", RedirectConfig{Host: "[::1]"}, http.MethodGet, "/", "[::1]:80", "https://[::1]/"},
		{"ipv6 custom port", RedirectConfig{Host: "::1", Port: 8443}, http.MethodGet, "/", "[::1]:80", "https://[::1]:8443/"},
		{"default host", RedirectConfig{}, http.MethodGet, "/a", "example.com", "https://localhost/a"},
		{"foreign host", RedirectConfig{Host: "www.example.com"}, http.MethodGet, "/account", "evil.example", "https://www.example.com/account"},
		{"foreign host not allowed", RedirectConfig{Host: "www.example.com", AllowedHosts: []string{"api.example.com"}}, http.MethodGet, "/", "evil.example:80", "https://www.example.com/"},
		{"allowed host", RedirectConfig{Host: "www.example.com", AllowedHosts: []string{"API.example.com"}}, http.MethodGet, "/", "api.example.com:8080", "https://api.example.com/"},
		{"allowed ipv6 host", RedirectConfig{Host: "www.example.com", AllowedHosts: []string{"[::1]"}}, http.MethodGet, "/", "[::1]:80", "https://[::1]/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := HTTPSRedirect(tt.cfg, nil)(okHandler)
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req.Host = tt.host
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusMovedPermanently, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
}

func TestHTTPSRedirect_Secure(t *testing.T) {
	metrics := metric.NewRegistry()
	h := HTTPSRedirect(RedirectConfig{StatusCode: http.StatusTemporaryRedirect}, metrics)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code, "proxy header ignored unless trusted")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPSRedirects))

	trusted := HTTPSRedirect(RedirectConfig{TrustProxy: true}, nil)(okHandler)
	rec = httptest.NewRecorder()
	trusted.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(`
x-frame-options: DENY
not a header
Strict-Transport-Security:  max-age=31536000; includeSubDomains
: no name
X-Frame-Options: SAMEORIGIN
Content-Security-Policy: default-src 'self'; img-src https://a.example:443
`)
	assert.Equal(t, []Header{
		{Name: "X-Frame-Options", Value: "SAMEORIGIN"},
		{Name: "Strict-Transport-Security", Value: "max-age=31536000; includeSubDomains"},
		{Name: "Content-Security-Policy", Value: "default-src 'self'; img-src https://a.example:443"},
	}, headers)

	assert.Empty(t, ParseHeaders(""))
}

func TestResponseHeaders(t *testing.T) {
	rh := NewResponseHeaders([]Header{{Name: "X-Frame-Options", Value: "DENY"}})
	h := rh.Middleware()(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rh.Set([]Header{{Name: "Referrer-Policy", Value: "no-referrer"}})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.Len(t, rh.Headers(), 1)
}

func TestAccessPolicy_Allows(t *testing.T) {
	p := AccessPolicy{
		Enabled: true,
		Allow: []netip.Prefix{
			netip.MustParsePrefix("10.0.0.0/8"),
			netip.MustParsePrefix("2001:db8::/32"),
			netip.MustParsePrefix("198.51.100.7/32"),
		},
	}
	addr := netip.MustParseAddr
	assert.True(t, p.Allows(addr("10.1.2.3"), netip.Addr{}))
	assert.True(t, p.Allows(addr("::ffff:10.1.2.3"), netip.Addr{}))
	assert.True(t, p.Allows(addr("2001:db8::1"), netip.Addr{}))
	assert.True(t, p.Allows(addr("198.51.100.7"), netip.Addr{}))
	assert.False(t, p.Allows(addr("198.51.100.8"), netip.Addr{}))
	assert.False(t, p.Allows(netip.Addr{}, netip.Addr{}))

	assert.False(t, p.Allows(addr("192.0.2.10"), addr("192.0.2.10")))
	p.AlwaysAllowLocal = true
	assert.True(t, p.Allows(addr("192.0.2.10"), addr("192.0.2.10")))
	assert.False(t, p.Allows(addr("192.0.2.11"), addr("192.0.2.10")))

	p.Enabled = false
	assert.True(t, p.Allows(addr("192.0.2.99"), netip.Addr{}))
}

func TestAccessControl(t *testing.T) {
	metrics := metric.NewRegistry()
	ac := NewAccessControl(AccessPolicy{
		Enabled:    true,
		Allow:      []netip.Prefix{netip.MustParsePrefix("203.0.113.0/24")},
		LogBlocked: true,
	}, metrics)
	h := ac.Middleware()(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "WS-AUTH-4031", rec.Header().Get("X-Error-Code"))
	assert.Equal(t, blockedCacheControl, rec.Header().Get("Cache-Control"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RequestsBlocked.WithLabelValues(metric.ReasonIPDenied)))

	ac.SetPolicy(AccessPolicy{Enabled: false})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, ac.Policy().Enabled)
}

func TestAccessControl_LocalAddress(t *testing.T) {
	ac := NewAccessControl(AccessPolicy{Enabled: true, AlwaysAllowLocal: true}, nil)
	h := ac.Middleware()(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	local := &net.TCPAddr{IP: net.ParseIP("192.0.2.1"), Port: 443}
	req = req.WithContext(context.WithValue(req.Context(), http.LocalAddrContextKey, net.Addr(local)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, netip.MustParseAddr("192.0.2.1"), localAddr(req))
}

func TestAccessControl_TrustProxy(t *testing.T) {
	ac := NewAccessControl(AccessPolicy{
		Enabled:    true,
		Allow:      []netip.Prefix{netip.MustParsePrefix("198.51.100.0/24")},
		TrustProxy: true,
	}, nil)
	h := ac.Middleware()(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.20, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
