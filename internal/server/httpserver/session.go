package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/yndnr/websec-go/internal/core/domain"
	"github.com/yndnr/websec-go/internal/server/httpserver/handler"
	"github.com/yndnr/websec-go/internal/telemetry/logger"
	"github.com/yndnr/websec-go/internal/telemetry/metric"
	"github.com/yndnr/websec-go/pkg/client"
	"github.com/yndnr/websec-go/pkg/token"
)

// HeaderCSRFToken carries the CSRF token on state-changing requests.
const HeaderCSRFToken = "X-CSRF-Token"

// Authenticator resolves a session cookie for a client.
type Authenticator interface {
	Authenticate(ctx context.Context, cookie string, identity *client.Identity, fingerprint string) (*domain.Session, error)
}

// BindingConfig names the cookies ClientBinding reads.
type BindingConfig struct {
	CookieName        string
	FingerprintCookie string
	TrustProxy        bool
}

// ClientBinding loads the session named by the session cookie and checks
// that it belongs to the requesting client. Requests without a valid
// session get 401. When the session was revoked for a binding mismatch the
// client's cookies are cleared too.
func ClientBinding(auth Authenticator, cfg BindingConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cfg.CookieName)
			if err != nil {
				handler.WriteError(w, r, domain.ErrSessionMissing)
				return
			}
			var fingerprint string
			if fc, err := r.Cookie(cfg.FingerprintCookie); err == nil {
				fingerprint = fc.Value
			}

			sess, err := auth.Authenticate(r.Context(), c.Value, client.FromRequest(r, cfg.TrustProxy), fingerprint)
			if err != nil {
				if errors.Is(err, domain.ErrClientMismatch) || errors.Is(err, domain.ErrFingerprintMismatch) {
					clearCookie(w, cfg.CookieName)
					clearCookie(w, cfg.FingerprintCookie)
				}
				handler.WriteError(w, r, err)
				return
			}

			ctx := handler.WithSession(r.Context(), sess)
			ctx = logger.WithSessionID(ctx, sess.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
}

// CSRF requires state-changing requests to echo the session's CSRF token
// in the X-CSRF-Token header. It must run after ClientBinding.
func CSRF(metrics *metric.Registry) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if safeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			sess := handler.SessionFromContext(r.Context())
			if sess == nil {
				handler.WriteError(w, r, domain.ErrSessionMissing)
				return
			}
			presented := r.Header.Get(HeaderCSRFToken)
			if presented == "" || !token.EqualValues(presented, sess.CSRF.Value()) {
				if metrics != nil {
					metrics.Blocked(metric.ReasonCSRF)
				}
				logger.L(r.Context()).Warn("csrf token mismatch", "method", r.Method, "path", r.URL.Path)
				handler.WriteError(w, r, domain.ErrCSRFMismatch)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func safeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
