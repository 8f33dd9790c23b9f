package handler

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"

	"github.com/yndnr/websec-go/internal/core/domain"
	"github.com/yndnr/websec-go/internal/core/service"
	"github.com/yndnr/websec-go/internal/telemetry/logger"
	"github.com/yndnr/websec-go/pkg/client"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 16 << 10

// HeaderErrorCode carries the domain error code of failed requests.
const HeaderErrorCode = "X-Error-Code"

// AuthService is the part of service.AuthService the handlers use.
type AuthService interface {
	Signup(ctx context.Context, username string, password []byte) (*domain.Credential, error)
	Login(ctx context.Context, username string, password []byte, identity *client.Identity) (*service.LoginResult, error)
	ChangePassword(ctx context.Context, username string, current, next []byte) error
	LogoutCookie(ctx context.Context, cookie string) error
}

// Config holds handler settings.
type Config struct {
	// CookieName names the session cookie.
	CookieName string
	// FingerprintCookie names the fingerprint cookie.
	FingerprintCookie string
	// CookieSecure marks both cookies Secure.
	CookieSecure bool
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
	// Version is reported by /health.
	Version string
}

// Handler serves the websec endpoints.
type Handler struct {
	auth   AuthService
	cfg    Config
	checks map[string]func(context.Context) error
	log    logger.Logger
}

// New creates a Handler.
func New(auth AuthService, cfg Config, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		auth:   auth,
		cfg:    cfg,
		checks: make(map[string]func(context.Context) error),
		log:    log,
	}
}

// AddCheck registers a health check reported by /health.
func (h *Handler) AddCheck(name string, check func(context.Context) error) {
	h.checks[name] = check
}

// Identity returns the client identity of r.
func (h *Handler) Identity(r *http.Request) *client.Identity {
	return client.FromRequest(r, h.cfg.TrustProxy)
}

// WriteJSON writes data in a success envelope.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(logger.RequestIDFromContext(r.Context()), data)); err != nil {
		logger.L(r.Context()).Error("failed to encode response", "error", err)
	}
}

// WriteError writes err in an error envelope. Non-domain errors become
// domain.ErrInternalServer and are logged; their text never reaches the
// client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	de, ok := domain.AsDomainError(err)
	if !ok {
		logger.L(r.Context()).Error("internal error", "error", err, "path", r.URL.Path)
		de = domain.ErrInternalServer
	}
	status := de.HTTPStatus()
	if status >= http.StatusInternalServerError && de.Cause != nil {
		logger.L(r.Context()).Error("request failed", "code", de.Code, "error", de.Cause, "path", r.URL.Path)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(HeaderErrorCode, de.Code)
	w.WriteHeader(status)
	resp := NewErrorResponse(logger.RequestIDFromContext(r.Context()), de.Code, de.Message, de.Details)
	_ = json.NewEncoder(w).Encode(resp)
}

// decodeCredentials reads a CredentialsRequest from a JSON or form body.
func decodeCredentials(w http.ResponseWriter, r *http.Request) (*CredentialsRequest, error) {
	var req CredentialsRequest
	if isForm(r) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return nil, domain.ErrBadRequest.WithCause(err)
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
		return &req, nil
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrBadRequest.WithDetails("malformed request body").WithCause(err)
	}
	return nil
}

func isForm(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/x-www-form-urlencoded"
}

type sessionKey struct{}

// WithSession stores the authenticated session in ctx.
func WithSession(ctx context.Context, s *domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the authenticated session, or nil.
func SessionFromContext(ctx context.Context) *domain.Session {
	s, _ := ctx.Value(sessionKey{}).(*domain.Session)
	return s
}
