package service

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/websec-go/internal/core/domain"
	"github.com/yndnr/websec-go/internal/storage"
	"github.com/yndnr/websec-go/internal/telemetry/logger"
	"github.com/yndnr/websec-go/internal/telemetry/metric"
	"github.com/yndnr/websec-go/pkg/client"
	"github.com/yndnr/websec-go/pkg/hashing"
	"github.com/yndnr/websec-go/pkg/salt"
	"github.com/yndnr/websec-go/pkg/token"
)

// CookieSeparator joins the session ID and token value in a session cookie.
const CookieSeparator = "."

// Token IDs stamped on the tokens minted at login.
const (
	TokenIDSession     = "session"
	TokenIDCSRF        = "csrf"
	TokenIDFingerprint = "fingerprint"
)

// Config holds AuthService settings.
type Config struct {
	// SessionTTL is the lifetime of sessions and their tokens.
	SessionTTL time.Duration

	// TokenLength, CSRFLength and FingerprintLength are token lengths in
	// characters. Out-of-range values are clamped by the generator.
	TokenLength       int
	CSRFLength        int
	FingerprintLength int

	// SaltLength is the per-credential salt length in bytes.
	SaltLength int

	// Pepper is the application-wide secret appended to every salt.
	// Nil hashes with the salt alone.
	Pepper []byte

	// LoginRate and LoginBurst throttle login attempts per username.
	LoginRate   rate.Limit
	LoginBurst  int
	LimiterIdle time.Duration
}

// DefaultConfig returns the default AuthService settings.
func DefaultConfig() Config {
	return Config{
		SessionTTL:        30 * time.Minute,
		TokenLength:       token.DefaultLength,
		CSRFLength:        token.MinLength,
		FingerprintLength: token.DefaultLength,
		SaltLength:        salt.DefaultLength,
		LoginRate:         0.2,
		LoginBurst:        5,
		LimiterIdle:       DefaultLimiterIdle,
	}
}

// AuthService registers users, logs them in and validates their sessions.
// It is safe for concurrent use.
type AuthService struct {
	creds    storage.CredentialStore
	sessions storage.SessionStore
	hasher   hashing.Hasher
	cfg      Config

	tokens   *token.Generator
	salts    *salt.Generator
	limiters *RateLimiterRegistry
	metrics  *metric.Registry
	log      logger.Logger
	now      func() time.Time

	// dummySalt is hashed against for unknown usernames so that a miss
	// costs as much as a wrong password.
	dummySalt []byte
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithTokenGenerator sets the token generator.
func WithTokenGenerator(g *token.Generator) Option {
	return func(s *AuthService) { s.tokens = g }
}

// WithSaltGenerator sets the salt generator.
func WithSaltGenerator(g *salt.Generator) Option {
	return func(s *AuthService) { s.salts = g }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) Option {
	return func(s *AuthService) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *AuthService) { s.log = l }
}

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService creates an AuthService.
func NewAuthService(creds storage.CredentialStore, sessions storage.SessionStore, hasher hashing.Hasher, cfg Config, opts ...Option) *AuthService {
	s := &AuthService{
		creds:    creds,
		sessions: sessions,
		hasher:   hasher,
		cfg:      cfg,
		log:      logger.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tokens == nil {
		s.tokens = token.NewGenerator(token.WithClock(s.now))
	}
	if s.salts == nil {
		s.salts = salt.NewGenerator(nil)
	}
	if s.metrics == nil {
		s.metrics = metric.NewRegistry()
	}
	s.limiters = NewRateLimiterRegistry(cfg.LoginRate, cfg.LoginBurst, cfg.LimiterIdle)
	s.limiters.now = s.now
	s.dummySalt = s.salts.Generate(cfg.SaltLength)

	if !s.tokens.Strong() || !s.salts.Strong() {
		s.log.Warn("random source is not cryptographically strong; tokens and salts are predictable")
	}
	return s
}

// Signup registers username with password. password is scrubbed.
func (s *AuthService) Signup(ctx context.Context, username string, password []byte) (*domain.Credential, error) {
	defer hashing.Scrub(password)

	username = domain.NormalizeUsername(username)
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}

	cred := &domain.Credential{
		Username:  username,
		Algorithm: s.hasher.Algorithm(),
		Params:    hashing.Params(s.hasher),
		Salt:      s.salts.Generate(s.cfg.SaltLength),
		CreatedAt: s.now().UTC(),
	}
	hash, err := s.hash(ctx, s.hasher, password, cred.Salt)
	if err != nil {
		return nil, err
	}
	cred.Hash = hash

	if err := s.creds.Create(ctx, cred); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, wrapStorage(err)
	}

	logger.L(ctx).Info("user registered", "username", username, "algorithm", cred.Algorithm)
	return cred.Clone(), nil
}

// ChangePassword replaces username's password after checking the current
// one. Both passwords are scrubbed. Login throttling applies.
func (s *AuthService) ChangePassword(ctx context.Context, username string, current, next []byte) error {
	defer hashing.Scrub(current)
	defer hashing.Scrub(next)

	username = domain.NormalizeUsername(username)
	if err := domain.ValidatePassword(next); err != nil {
		return err
	}
	if !s.limiters.Allow(username) {
		s.metrics.Blocked(metric.ReasonRateLimited)
		return domain.ErrTooManyAttempts
	}
	cred, err := s.verifyPassword(ctx, username, current)
	if err != nil {
		return err
	}

	updated := cred.Clone()
	updated.Algorithm = s.hasher.Algorithm()
	updated.Params = hashing.Params(s.hasher)
	updated.Salt = s.salts.Generate(s.cfg.SaltLength)
	hash, err := s.hash(ctx, s.hasher, next, updated.Salt)
	if err != nil {
		return err
	}
	updated.Hash = hash
	if err := s.creds.Put(ctx, updated); err != nil {
		return wrapStorage(err)
	}
	logger.L(ctx).Info("password changed", "username", username)
	return nil
}

// LoginResult is a freshly opened session with the raw token values the
// client must receive.
type LoginResult struct {
	Session     *domain.Session
	Token       token.Token
	CSRF        token.Token
	Fingerprint token.Token
}

// CookieValue returns the session cookie value.
func (r *LoginResult) CookieValue() string {
	return r.Session.ID + CookieSeparator + r.Token.Value()
}

// Login checks username and password and opens a session bound to
// identity. Every credential failure returns domain.ErrInvalidCredentials.
// password is scrubbed.
func (s *AuthService) Login(ctx context.Context, username string, password []byte, identity *client.Identity) (*LoginResult, error) {
	defer hashing.Scrub(password)
	log := logger.L(ctx)

	username = domain.NormalizeUsername(username)
	if !s.limiters.Allow(username) {
		s.metrics.ObserveLogin(false)
		s.metrics.Blocked(metric.ReasonRateLimited)
		log.Warn("login throttled", "username", username, "ip", identity.IPAddress())
		return nil, domain.ErrTooManyAttempts.WithDetails("retry after " + s.limiters.RetryAfter(username).Round(time.Second).String())
	}

	cred, err := s.verifyPassword(ctx, username, password)
	if err != nil {
		s.metrics.ObserveLogin(false)
		if errors.Is(err, domain.ErrInvalidCredentials) {
			log.Info("login failed", "username", username, "ip", identity.IPAddress())
		}
		return nil, err
	}

	res, err := s.openSession(ctx, cred.Username, identity)
	if err != nil {
		s.metrics.ObserveLogin(false)
		return nil, err
	}
	s.metrics.ObserveLogin(true)
	log.Info("login succeeded", "username", cred.Username, "session_id", res.Session.ID, "ip", identity.IPAddress())
	return res, nil
}

// verifyPassword returns the credential when password matches. A
// credential made with other hasher settings is rehashed with the
// current ones.
func (s *AuthService) verifyPassword(ctx context.Context, username string, password []byte) (*domain.Credential, error) {
	cred, err := s.creds.Get(ctx, username)
	if errors.Is(err, domain.ErrCredentialNotFound) {
		_, _ = s.hash(ctx, s.hasher, append([]byte(nil), password...), s.dummySalt)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, wrapStorage(err)
	}

	h, err := hashing.NewWithParams(cred.Algorithm, cred.Params)
	if err != nil {
		logger.L(ctx).Error("stored credential has unusable hash settings",
			"username", username, "algorithm", cred.Algorithm, "error", err)
		return nil, domain.ErrCredentialOperation.WithCause(err)
	}

	stale := s.isStale(cred)
	var retained []byte
	if stale {
		retained = append([]byte(nil), password...)
		defer hashing.Scrub(retained)
	}

	actual, err := s.hash(ctx, h, password, cred.Salt)
	if err != nil {
		return nil, err
	}
	if !token.EqualValues(string(actual), string(cred.Hash)) {
		return nil, domain.ErrInvalidCredentials
	}

	if stale {
		s.rehash(ctx, cred, retained)
	}
	return cred, nil
}

func (s *AuthService) isStale(cred *domain.Credential) bool {
	return !strings.EqualFold(cred.Algorithm, s.hasher.Algorithm()) ||
		!maps.Equal(cred.Params, hashing.Params(s.hasher))
}

// rehash upgrades cred to the current hasher settings. Failure is logged
// and the old hash stays valid.
func (s *AuthService) rehash(ctx context.Context, cred *domain.Credential, password []byte) {
	upgraded := cred.Clone()
	upgraded.Algorithm = s.hasher.Algorithm()
	upgraded.Params = hashing.Params(s.hasher)
	upgraded.Salt = s.salts.Generate(s.cfg.SaltLength)

	hash, err := s.hash(ctx, s.hasher, password, upgraded.Salt)
	if err == nil {
		upgraded.Hash = hash
		err = s.creds.Put(ctx, upgraded)
	}
	if err != nil {
		logger.L(ctx).Warn("credential rehash failed", "username", cred.Username, "error", err)
		return
	}
	logger.L(ctx).Info("credential rehashed", "username", cred.Username, "algorithm", upgraded.Algorithm)
}

// hash runs h with the application pepper and records metrics. A
// HashError becomes domain.ErrCredentialOperation.
func (s *AuthService) hash(ctx context.Context, h hashing.Hasher, password, saltBytes []byte) ([]byte, error) {
	start := time.Now()
	var (
		out []byte
		err error
	)
	if s.cfg.Pepper == nil {
		out, err = h.Hash(password, saltBytes)
	} else {
		out, err = h.HashWithPepper(password, saltBytes, s.cfg.Pepper)
	}
	s.metrics.ObserveHash(h.Algorithm(), time.Since(start), err)
	if err != nil {
		logger.L(ctx).Error("password hashing failed", "algorithm", h.Algorithm(), "error", err)
		return nil, domain.ErrCredentialOperation.WithCause(err)
	}
	return out, nil
}

func (s *AuthService) openSession(ctx context.Context, username string, identity *client.Identity) (*LoginResult, error) {
	id, err := domain.GenerateSessionID()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.cfg.SessionTTL)

	sessTok := s.tokens.Generate(token.EncodingAlphanumeric, TokenIDSession, s.cfg.TokenLength, expiresAt)
	csrfTok := s.tokens.Generate(token.EncodingBase64, TokenIDCSRF, s.cfg.CSRFLength, expiresAt)
	fpTok := s.tokens.Generate(token.EncodingHexadecimal, TokenIDFingerprint, s.cfg.FingerprintLength, expiresAt)
	s.metrics.TokensIssued.WithLabelValues(string(token.EncodingAlphanumeric)).Inc()
	s.metrics.TokensIssued.WithLabelValues(string(token.EncodingBase64)).Inc()
	s.metrics.TokensIssued.WithLabelValues(string(token.EncodingHexadecimal)).Inc()

	bound := identity.Clone()
	bound.SetFingerprint(fpTok)

	sess := &domain.Session{
		ID:          id,
		Username:    username,
		TokenDigest: token.Digest(sessTok.Value()),
		CSRF:        csrfTok,
		Client:      bound,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, wrapStorage(err)
	}
	s.metrics.SessionsCreated.Inc()

	return &LoginResult{
		Session:     sess,
		Token:       sessTok,
		CSRF:        csrfTok,
		Fingerprint: fpTok,
	}, nil
}

// ParseCookie splits a session cookie value into session ID and token.
func ParseCookie(value string) (sessionID, tokenValue string, ok bool) {
	sessionID, tokenValue, ok = strings.Cut(value, CookieSeparator)
	if !ok || !domain.IsValidSessionID(sessionID) || tokenValue == "" {
		return "", "", false
	}
	return sessionID, tokenValue, true
}

// Authenticate resolves a session cookie and validates the session against
// the presenting client. It returns domain.ErrSessionMissing when the
// cookie is malformed, unknown, expired or carries the wrong token.
func (s *AuthService) Authenticate(ctx context.Context, cookie string, identity *client.Identity, fingerprint string) (*domain.Session, error) {
	id, value, ok := ParseCookie(cookie)
	if !ok {
		return nil, domain.ErrSessionMissing
	}
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if !token.VerifyDigest(value, sess.TokenDigest) {
		logger.L(ctx).Warn("session token mismatch", "session_id", id, "ip", identity.IPAddress())
		return nil, domain.ErrSessionMissing
	}
	return s.check(ctx, sess, identity, fingerprint)
}

// Validate checks that session sessionID is live, was opened by the
// client identity now presents, and that fingerprint matches the token
// bound at login. A binding mismatch expires the session.
func (s *AuthService) Validate(ctx context.Context, sessionID string, identity *client.Identity, fingerprint string) (*domain.Session, error) {
	sess, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.check(ctx, sess, identity, fingerprint)
}

func (s *AuthService) lookup(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionExpired):
		return nil, domain.ErrSessionMissing.WithCause(err)
	default:
		return nil, wrapStorage(err)
	}
	// Stores already filter expired sessions; a clock skew between
	// instances can still let one through.
	if sess.IsExpired(s.now()) {
		return nil, domain.ErrSessionMissing.WithCause(domain.ErrSessionExpired)
	}
	return sess, nil
}

func (s *AuthService) check(ctx context.Context, sess *domain.Session, identity *client.Identity, fingerprint string) (*domain.Session, error) {
	log := logger.L(ctx)

	if !sess.Client.Matches(identity.IPAddress(), identity.UserAgent()) {
		log.Warn("session client mismatch",
			"session_id", sess.ID,
			"bound_ip", sess.Client.IPAddress(),
			"ip", identity.IPAddress())
		s.metrics.Blocked(metric.ReasonClientMismatch)
		s.revoke(ctx, sess.ID)
		return nil, domain.ErrClientMismatch
	}

	bound, ok := sess.Fingerprint()
	if !ok || !bound.IsValidAt(s.now()) || !token.EqualValues(bound.Value(), fingerprint) {
		log.Warn("session fingerprint mismatch", "session_id", sess.ID, "ip", identity.IPAddress())
		s.metrics.Blocked(metric.ReasonFingerprintMismatch)
		s.revoke(ctx, sess.ID)
		return nil, domain.ErrFingerprintMismatch
	}
	return sess, nil
}

// revoke expires a session after a binding failure.
func (s *AuthService) revoke(ctx context.Context, id string) {
	if err := s.sessions.Expire(ctx, id); err != nil {
		logger.L(ctx).Error("failed to expire session", "session_id", id, "error", err)
		return
	}
	s.metrics.SessionsRevoked.Inc()
}

// Logout expires session sessionID now. Unknown sessions are ignored.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Expire(ctx, sessionID); err != nil {
		return wrapStorage(err)
	}
	s.metrics.SessionsRevoked.Inc()
	logger.L(ctx).Info("session ended", "session_id", sessionID)
	return nil
}

// LogoutCookie ends the session named by a session cookie. Malformed,
// unknown or mismatched cookies are ignored.
func (s *AuthService) LogoutCookie(ctx context.Context, cookie string) error {
	id, value, ok := ParseCookie(cookie)
	if !ok {
		return nil
	}
	sess, err := s.lookup(ctx, id)
	if errors.Is(err, domain.ErrSessionMissing) {
		return nil
	}
	if err != nil {
		return err
	}
	if !token.VerifyDigest(value, sess.TokenDigest) {
		return nil
	}
	return s.Logout(ctx, id)
}

func wrapStorage(err error) error {
	if _, ok := domain.AsDomainError(err); ok {
		return err
	}
	return domain.ErrStorageError.WithCause(err)
}
