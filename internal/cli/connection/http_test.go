package connection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/websec-go/internal/core/service"
	"github.com/yndnr/websec-go/internal/server/httpserver"
	"github.com/yndnr/websec-go/internal/server/httpserver/handler"
	"github.com/yndnr/websec-go/internal/storage/memory"
	"github.com/yndnr/websec-go/internal/telemetry/logger"
	"github.com/yndnr/websec-go/pkg/hashing"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	sessions := memory.NewSessionStore(memory.WithSweepInterval(0))
	t.Cleanup(func() { _ = sessions.Close() })
	svc := service.NewAuthService(memory.NewCredentialStore(), sessions,
		hashing.NewPBKDF2WithIterations(1000), service.DefaultConfig(),
		service.WithLogger(logger.Discard()))

	binding := httpserver.BindingConfig{CookieName: "sid", FingerprintCookie: "fp"}
	h := handler.New(svc, handler.Config{CookieName: binding.CookieName, FingerprintCookie: binding.FingerprintCookie, Version: "test"}, logger.Discard())
	srv := httptest.NewServer(httpserver.NewRouter(&httpserver.RouterConfig{Handler: h, Auth: svc, Binding: binding}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient_BaseURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"http://localhost:8080", "http://localhost:8080"},
		{"https://localhost:8443/", "https://localhost:8443"},
		{"localhost:8080", "http://localhost:8080"},
		{"auth.example.com", "http://auth.example.com"},
	}
	for _, tt := range tests {
		c, err := NewClient(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, c.BaseURL())
	}
}

func TestClient_SessionLifecycle(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)

	cred, err := c.Signup(ctx, "alice", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "alice", cred.Username)

	_, err = c.Signup(ctx, "alice", "correct horse battery")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "WS-CRED-4090", apiErr.Code)

	_, err = c.Session(ctx)
	require.Error(t, err)

	sess, err := c.Login(ctx, "alice", "correct horse battery")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.CSRFToken)

	got, err := c.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess.SessionID, got.SessionID)

	require.NoError(t, c.ChangePassword(ctx, "correct horse battery", "staple battery horse"))

	loc, err := c.Logout(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/", loc)

	_, err = c.Session(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, err = c.Login(ctx, "alice", "staple battery horse")
	assert.NoError(t, err)
}

func TestClient_UnhealthyServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"code":"OK","data":{"status":"unhealthy","checks":{"sessions":"failing"}}}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "failing", health.Checks["sessions"])
}

func TestParseResponse_NonEnvelopeError(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.WriteHeader(http.StatusBadGateway)
	_, _ = rec.WriteString("<html>bad gateway</html>")

	err := ParseResponse(rec.Result(), nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "request failed with status 502", err.Error())
}
