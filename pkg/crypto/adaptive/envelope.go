package adaptive

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// Envelope layout:
//
//	magic[6] cipher[1] salt[16] nonce||ciphertext||tag
//
// The header is authenticated as additional data.
var magic = []byte("WSENC1")

const (
	envelopeSaltLen = 16
	headerLen       = len("WSENC1") + 1 + envelopeSaltLen

	// Argon2id parameters for passphrase keys.
	kdfTime    = 3
	kdfMemory  = 64 * 1024
	kdfThreads = 4
)

var cipherIDs = map[CipherType]byte{CipherAESGCM: 1, CipherChaCha20: 2}

// ErrNotSealed is returned by OpenWithPassphrase for data without an
// envelope header.
var ErrNotSealed = errors.New("adaptive: data is not sealed")

// IsSealed reports whether data starts with an envelope header.
func IsSealed(data []byte) bool {
	return len(data) >= headerLen && bytes.HasPrefix(data, magic)
}

// DeriveKey stretches a passphrase into a cipher key with Argon2id.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, kdfTime, kdfMemory, kdfThreads, KeySize)
}

// SealWithPassphrase encrypts plaintext under a key derived from
// passphrase and a fresh salt.
func SealWithPassphrase(passphrase, plaintext []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("adaptive: empty passphrase")
	}
	typ := Preferred()
	header := make([]byte, headerLen)
	copy(header, magic)
	header[len(magic)] = cipherIDs[typ]
	if _, err := io.ReadFull(rand.Reader, header[len(magic)+1:]); err != nil {
		return nil, fmt.Errorf("adaptive: salt: %w", err)
	}

	c, err := NewWithType(DeriveKey(passphrase, header[len(magic)+1:]), typ)
	if err != nil {
		return nil, err
	}
	sealed, err := c.Seal(plaintext, header)
	if err != nil {
		return nil, err
	}
	return append(header, sealed...), nil
}

// OpenWithPassphrase reverses SealWithPassphrase. A wrong passphrase or
// modified data yields ErrDecrypt.
func OpenWithPassphrase(passphrase, data []byte) ([]byte, error) {
	if !IsSealed(data) {
		return nil, ErrNotSealed
	}
	header := data[:headerLen]
	var typ CipherType
	for t, id := range cipherIDs {
		if id == header[len(magic)] {
			typ = t
		}
	}
	if typ == "" {
		return nil, fmt.Errorf("adaptive: unknown cipher id %d", header[len(magic)])
	}
	c, err := NewWithType(DeriveKey(passphrase, header[len(magic)+1:]), typ)
	if err != nil {
		return nil, err
	}
	return c.Open(data[headerLen:], header)
}
