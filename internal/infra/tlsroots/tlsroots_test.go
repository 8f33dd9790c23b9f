package tlsroots

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/websec-go/internal/infra/confloader"
	"github.com/yndnr/websec-go/internal/telemetry/logger"
)

// writeCert writes a self-signed certificate and key for commonName.
func writeCert(t *testing.T, certFile, keyFile, commonName string) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))
	if keyFile != "" {
		keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
		require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	}
	return certPEM
}

func TestAppendPEM(t *testing.T) {
	dir := t.TempDir()
	certPEM := writeCert(t, filepath.Join(dir, "ca.pem"), "", "ca")

	pool := x509.NewCertPool()
	require.NoError(t, AppendPEM(pool, append([]byte("-----BEGIN JUNK-----\nAA==\n-----END JUNK-----\n"), certPEM...)))

	assert.ErrorIs(t, AppendPEM(x509.NewCertPool(), nil), ErrNoCertsFound)
	assert.ErrorIs(t, AppendPEM(x509.NewCertPool(), []byte("garbage")), ErrNoCertsFound)

	bad := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("nope")})
	assert.Error(t, AppendPEM(x509.NewCertPool(), bad))
}

func TestLoadPool_And_ClientConfig(t *testing.T) {
	pool, err := LoadPool("")
	require.NoError(t, err)
	assert.NotNil(t, pool)

	dir := t.TempDir()
	ca := filepath.Join(dir, "ca.pem")
	writeCert(t, ca, "", "ca")

	cfg, err := ClientConfig(ca)
	require.NoError(t, err)
	assert.NotNil(t, cfg.RootCAs)

	_, err = ClientConfig(filepath.Join(dir, "missing.pem"))
	assert.Error(t, err)
}

func TestKeypair_LoadAndReload(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := filepath.Join(dir, "tls.crt"), filepath.Join(dir, "tls.key")
	writeCert(t, certFile, keyFile, "first")

	k, err := NewKeypair(certFile, keyFile, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, "first", leafCN(t, k))

	writeCert(t, certFile, keyFile, "second")
	require.NoError(t, k.Reload())
	assert.Equal(t, "second", leafCN(t, k))

	require.NoError(t, os.WriteFile(certFile, []byte("broken"), 0o600))
	assert.Error(t, k.Reload())
	assert.Equal(t, "second", leafCN(t, k), "previous certificate stays in service")

	cfg := k.ServerConfig()
	assert.NotNil(t, cfg.GetCertificate)
}

func TestNewKeypair_Missing(t *testing.T) {
	_, err := NewKeypair("/nonexistent.crt", "/nonexistent.key", logger.Discard())
	assert.Error(t, err)
}

func TestKeypair_WatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := filepath.Join(dir, "tls.crt"), filepath.Join(dir, "tls.key")
	writeCert(t, certFile, keyFile, "before")

	k, err := NewKeypair(certFile, keyFile, logger.Discard())
	require.NoError(t, err)

	w, err := confloader.NewWatcher(
		confloader.WithWatcherLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		confloader.WithDebounce(50*time.Millisecond),
	)
	require.NoError(t, err)
	defer w.Stop()
	require.NoError(t, k.Watch(w))
	w.StartAsync()

	writeCert(t, certFile, keyFile, "after")
	assert.Eventually(t, func() bool { return leafCN(t, k) == "after" }, 3*time.Second, 25*time.Millisecond)
}

func leafCN(t *testing.T, k *Keypair) string {
	t.Helper()
	c, err := k.GetCertificate(nil)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(c.Certificate[0])
	require.NoError(t, err)
	return leaf.Subject.CommonName
}
