package tlsroots

import (
	"crypto/tls"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/yndnr/websec-go/internal/infra/confloader"
	"github.com/yndnr/websec-go/internal/telemetry/logger"
)

// Keypair serves a certificate that can be swapped while the listener is
// running.
type Keypair struct {
	certFile string
	keyFile  string
	log      logger.Logger
	cert     atomic.Pointer[tls.Certificate]
}

// NewKeypair loads certFile and keyFile.
func NewKeypair(certFile, keyFile string, log logger.Logger) (*Keypair, error) {
	if log == nil {
		log = logger.Default()
	}
	k := &Keypair{certFile: certFile, keyFile: keyFile, log: log}
	if err := k.Reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial load: %w", err)
	}
	return k, nil
}

// Reload reads the key pair again. On failure the previous certificate
// stays in service.
func (k *Keypair) Reload() error {
	cert, err := tls.LoadX509KeyPair(k.certFile, k.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}
	k.cert.Store(&cert)
	k.log.Info("certificate loaded", "cert_file", k.certFile)
	return nil
}

// Watch reloads the key pair whenever w reports a change to either file.
func (k *Keypair) Watch(w *confloader.Watcher) error {
	for _, f := range []string{k.certFile, k.keyFile} {
		if err := w.Watch(f); err != nil {
			return err
		}
	}
	certAbs, _ := filepath.Abs(k.certFile)
	keyAbs, _ := filepath.Abs(k.keyFile)
	w.OnChange(func(path string) {
		abs, _ := filepath.Abs(path)
		if abs != certAbs && abs != keyAbs {
			return
		}
		if err := k.Reload(); err != nil {
			k.log.Error("certificate reload failed", "cert_file", k.certFile, "error", err)
		}
	})
	return nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (k *Keypair) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return k.cert.Load(), nil
}

// ServerConfig returns a TLS 1.2+ server config backed by k.
func (k *Keypair) ServerConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: k.GetCertificate,
	}
}
