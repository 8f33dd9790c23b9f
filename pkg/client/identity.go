// Package client identifies remote HTTP clients and binds fingerprint tokens
// to them.
//
// An Identity is immutable except for its fingerprint, which is swapped
// atomically so that concurrent requests for the same client always observe
// a complete token.
//
// An empty user agent stands for an absent User-Agent header.
package client

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yndnr/websec-go/pkg/token"
)

// Identity is a remote client's network address and user agent, with an
// optional fingerprint token.
type Identity struct {
	ipAddress   string
	userAgent   string
	initTime    time.Time
	fingerprint atomic.Pointer[token.Token]
}

// NewIdentity creates an Identity stamped with the current UTC time. An
// empty userAgent means the client sent none; a present-but-empty
// User-Agent header therefore matches an absent one.
func NewIdentity(ipAddress, userAgent string) *Identity {
	return &Identity{
		ipAddress: ipAddress,
		userAgent: userAgent,
		initTime:  time.Now().UTC(),
	}
}

// FromRequest builds an Identity from r. When trustProxy is set the first
// X-Forwarded-For entry, then X-Real-IP, take precedence over RemoteAddr.
func FromRequest(r *http.Request, trustProxy bool) *Identity {
	return NewIdentity(RemoteIP(r, trustProxy), r.Header.Get("User-Agent"))
}

// RemoteIP extracts the client IP from r.
func RemoteIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IPAddress returns the client's IP address.
func (c *Identity) IPAddress() string { return c.ipAddress }

// UserAgent returns the User-Agent header value, empty when absent.
func (c *Identity) UserAgent() string { return c.userAgent }

// InitTime returns the UTC construction time.
func (c *Identity) InitTime() time.Time { return c.initTime }

// Fingerprint returns the bound fingerprint token, if any.
func (c *Identity) Fingerprint() (token.Token, bool) {
	p := c.fingerprint.Load()
	if p == nil {
		return token.Token{}, false
	}
	return *p, true
}

// SetFingerprint binds t to the client, replacing any previous fingerprint.
func (c *Identity) SetFingerprint(t token.Token) {
	c.fingerprint.Store(&t)
}

// ClearFingerprint removes the bound fingerprint.
func (c *Identity) ClearFingerprint() {
	c.fingerprint.Store(nil)
}

// Clone returns an independent copy of c, fingerprint included.
func (c *Identity) Clone() *Identity {
	out := &Identity{
		ipAddress: c.ipAddress,
		userAgent: c.userAgent,
		initTime:  c.initTime,
	}
	out.fingerprint.Store(c.fingerprint.Load())
	return out
}

// Matches reports whether ip and userAgent identify this client. The
// fingerprint is not consulted.
func (c *Identity) Matches(ip, userAgent string) bool {
	return c.ipAddress == ip && c.userAgent == userAgent
}

// Equal reports whether both identities share ip, user agent and
// fingerprint (both absent, or equal tokens).
func (c *Identity) Equal(o *Identity) bool {
	if c == o {
		return true
	}
	if o == nil {
		return false
	}
	if !c.Matches(o.ipAddress, o.userAgent) {
		return false
	}
	a, aok := c.Fingerprint()
	b, bok := o.Fingerprint()
	if aok != bok {
		return false
	}
	return !aok || a.Equal(b)
}

// Compare orders identities by IP, user agent, then fingerprint. An absent
// user agent or fingerprint sorts first; a nil identity sorts last.
func (c *Identity) Compare(o *Identity) int {
	if c == o {
		return 0
	}
	if o == nil {
		return -1
	}
	if r := strings.Compare(c.ipAddress, o.ipAddress); r != 0 {
		return r
	}
	if r := strings.Compare(c.userAgent, o.userAgent); r != 0 {
		return r
	}
	a, aok := c.Fingerprint()
	b, bok := o.Fingerprint()
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	return a.Compare(b)
}

type wireIdentity struct {
	IPAddress   string       `json:"ip_address"`
	UserAgent   string       `json:"user_agent,omitempty"`
	InitTime    time.Time    `json:"init_time"`
	Fingerprint *token.Token `json:"fingerprint,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c *Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireIdentity{
		IPAddress:   c.ipAddress,
		UserAgent:   c.userAgent,
		InitTime:    c.initTime,
		Fingerprint: c.fingerprint.Load(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Identity) UnmarshalJSON(data []byte) error {
	var w wireIdentity
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.ipAddress = w.IPAddress
	c.userAgent = w.UserAgent
	c.initTime = w.InitTime.UTC()
	c.fingerprint.Store(w.Fingerprint)
	return nil
}
