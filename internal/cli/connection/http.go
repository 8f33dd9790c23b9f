package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/websec-go/internal/infra/buildinfo"
	"github.com/yndnr/websec-go/internal/server/httpserver"
	"github.com/yndnr/websec-go/internal/server/httpserver/handler"
)

// DefaultTimeout bounds each request.
const DefaultTimeout = 30 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithTLSConfig sets the TLS configuration for https servers.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Client) {
		c.http.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: cfg,
		}
	}
}

// WithHTTPClient replaces the underlying http.Client. Its cookie jar is
// replaced by the Client's own.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		cp := *hc
		cp.Jar = c.http.Jar
		c.http = &cp
	}
}

// Client talks to a websec server.
type Client struct {
	baseURL *url.URL
	http    *http.Client

	mu   sync.Mutex
	csrf string
}

// NewClient creates a client for server. A missing scheme means http.
func NewClient(server string, opts ...Option) (*Client, error) {
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "http://" + server
	}
	u, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server address: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: u,
		http: &http.Client{
			Timeout: DefaultTimeout,
			Jar:     jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Health calls GET /health. An unhealthy server is not an error; the
// report says which checks fail.
func (c *Client) Health(ctx context.Context) (*handler.HealthResponse, error) {
	var out handler.HealthResponse
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		return &out, decodeData(resp, &out, true)
	}
	return &out, ParseResponse(resp, &out)
}

// Signup calls POST /signup.
func (c *Client) Signup(ctx context.Context, username, password string) (*handler.SignupResponse, error) {
	var out handler.SignupResponse
	resp, err := c.do(ctx, http.MethodPost, "/signup", handler.CredentialsRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	return &out, ParseResponse(resp, &out)
}

// Login calls POST /login and keeps the returned cookies and CSRF token.
func (c *Client) Login(ctx context.Context, username, password string) (*handler.SessionResponse, error) {
	var out handler.SessionResponse
	resp, err := c.do(ctx, http.MethodPost, "/login", handler.CredentialsRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	if err := ParseResponse(resp, &out); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.csrf = out.CSRFToken
	c.mu.Unlock()
	return &out, nil
}

// Session calls GET /session.
func (c *Client) Session(ctx context.Context) (*handler.SessionResponse, error) {
	var out handler.SessionResponse
	resp, err := c.do(ctx, http.MethodGet, "/session", nil)
	if err != nil {
		return nil, err
	}
	return &out, ParseResponse(resp, &out)
}

// ChangePassword calls POST /password with the CSRF token from Login.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	resp, err := c.do(ctx, http.MethodPost, "/password", handler.PasswordChangeRequest{Current: current, New: next})
	if err != nil {
		return err
	}
	return ParseResponse(resp, nil)
}

// Logout calls POST /logout and returns the redirect location.
func (c *Client) Logout(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/logout", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		return "", fmt.Errorf("logout: unexpected status %d", resp.StatusCode)
	}
	c.mu.Lock()
	c.csrf = ""
	c.mu.Unlock()
	return resp.Header.Get("Location"), nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	c.mu.Lock()
	if c.csrf != "" && method != http.MethodGet {
		req.Header.Set(httpserver.HeaderCSRFToken, c.csrf)
	}
	c.mu.Unlock()
	return c.http.Do(req)
}

// APIError is a failed response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// ParseResponse decodes the data member of a success envelope into target
// and closes the body. Error envelopes become *APIError.
func ParseResponse(resp *http.Response, target any) error {
	return decodeData(resp, target, false)
}

func decodeData(resp *http.Response, target any, ignoreStatus bool) error {
	defer resp.Body.Close()

	var env struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details string          `json:"details"`
		Data    json.RawMessage `json:"data"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode >= 400 && !ignoreStatus {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code, apiErr.Message, apiErr.Details = env.Code, env.Message, env.Details
		}
		return apiErr
	}
	if decodeErr != nil {
		if decodeErr == io.EOF && target == nil {
			return nil
		}
		return fmt.Errorf("parse response: %w", decodeErr)
	}
	if target != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return fmt.Errorf("parse response data: %w", err)
		}
	}
	return nil
}
