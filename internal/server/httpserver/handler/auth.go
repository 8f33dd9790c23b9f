package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yndnr/websec-go/internal/core/domain"
	"github.com/yndnr/websec-go/internal/telemetry/logger"
)

// Signup handles POST /signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(w, r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	cred, err := h.auth.Signup(r.Context(), req.Username, []byte(req.Password))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, r, http.StatusCreated, SignupResponse{
		Username:  cred.Username,
		Algorithm: cred.Algorithm,
		CreatedAt: cred.CreatedAt,
	})
}

// Login handles POST /login. On success it sets the session and
// fingerprint cookies and returns the CSRF token in the body.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(w, r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		WriteError(w, r, domain.ErrBadRequest.WithDetails("username and password are required"))
		return
	}

	res, err := h.auth.Login(r.Context(), req.Username, []byte(req.Password), h.Identity(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	http.SetCookie(w, h.cookie(h.cfg.CookieName, res.CookieValue(), res.Session.ExpiresAt))
	http.SetCookie(w, h.cookie(h.cfg.FingerprintCookie, res.Fingerprint.Value(), res.Session.ExpiresAt))
	WriteJSON(w, r, http.StatusOK, sessionResponse(res.Session))
}

// Logout handles GET and POST /logout: it ends the session named by the
// session cookie, clears client state and redirects to the redirectURL
// parameter, or "/". Only same-site relative paths are honored.
//
// Logout carries no CSRF token so that a plain link works. Requests a
// browser marks as coming from another site are rejected instead.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if crossSite(r) {
		WriteError(w, r, domain.ErrCrossSiteRequest)
		return
	}
	if c, err := r.Cookie(h.cfg.CookieName); err == nil {
		if err := h.auth.LogoutCookie(r.Context(), c.Value); err != nil {
			logger.L(r.Context()).Error("logout failed", "error", err)
		}
	}

	http.SetCookie(w, h.expiredCookie(h.cfg.CookieName))
	http.SetCookie(w, h.expiredCookie(h.cfg.FingerprintCookie))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Clear-Site-Data", "*")
	http.Redirect(w, r, redirectTarget(r.FormValue("redirectURL")), http.StatusFound)
}

// Session handles GET /session. It requires an authenticated session in
// the request context.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	if sess == nil {
		WriteError(w, r, domain.ErrSessionMissing)
		return
	}
	WriteJSON(w, r, http.StatusOK, sessionResponse(sess))
}

// ChangePassword handles POST /password for the authenticated user.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	if sess == nil {
		WriteError(w, r, domain.ErrSessionMissing)
		return
	}
	var req PasswordChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := h.auth.ChangePassword(r.Context(), sess.Username, []byte(req.Current), []byte(req.New)); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sessionResponse(s *domain.Session) SessionResponse {
	return SessionResponse{
		SessionID: s.ID,
		Username:  s.Username,
		CSRFToken: s.CSRF.Value(),
		IPAddress: s.Client.IPAddress(),
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}

func (h *Handler) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (h *Handler) expiredCookie(name string) *http.Cookie {
	c := h.cookie(name, "", time.Unix(0, 0))
	c.MaxAge = -1
	return c
}

// redirectTarget returns target when it is a local absolute path, else "/".
// crossSite reports whether a browser sent r on behalf of another site,
// using Sec-Fetch-Site when present and Origin otherwise. Requests
// without either header (non-browser clients) are not cross-site.
func crossSite(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "same-origin", "none":
		return false
	case "":
	default:
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return true
	}
	return !strings.EqualFold(u.Host, r.Host)
}

func redirectTarget(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") ||
		strings.ContainsAny(target, "\r\n") {
		return "/"
	}
	return target
}
