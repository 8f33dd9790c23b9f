package hashing

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
)

// ScrubByte replaces every password byte after hashing.
const ScrubByte byte = '*'

// KeyLength is the derived key length in bytes (512 bits) for every variant.
const KeyLength = 64

var (
	// ErrUnsupportedAlgorithm reports an algorithm the build does not provide.
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

	// ErrInvalidParameter reports a parameter value the algorithm cannot use.
	ErrInvalidParameter = errors.New("invalid hash parameter")
)

// HashError is returned when hashing cannot run with the requested algorithm
// or parameters. It is fatal for the credential operation: retrying with the
// same inputs will fail the same way.
type HashError struct {
	Algorithm string
	Err       error
}

func (e *HashError) Error() string {
	return fmt.Sprintf("hashing: %s: %v", e.Algorithm, e.Err)
}

func (e *HashError) Unwrap() error { return e.Err }

// Hasher derives a fixed-length key from a password and salt.
//
// Parameter access is safe for concurrent use; changing parameters while
// hashes are in flight affects only later calls.
type Hasher interface {
	// Algorithm returns the algorithm name, e.g. "PBKDF2WithHmacSHA512".
	Algorithm() string

	// Parameter returns a parameter value and whether the name is known.
	Parameter(name string) (any, bool)

	// SetParameter sets a parameter. Unknown names are ignored.
	SetParameter(name string, value any) error

	// RemoveParameter restores a parameter's default and returns the value
	// it held.
	RemoveParameter(name string) (any, bool)

	// Reset restores every parameter to its default.
	Reset()

	// Hash derives the key and scrubs password.
	Hash(password, salt []byte) ([]byte, error)

	// HashWithPepper is Hash(password, Combine(salt, pepper)).
	HashWithPepper(password, salt, pepper []byte) ([]byte, error)
}

// Algorithm names accepted by New.
const (
	AlgorithmPBKDF2   = "PBKDF2WithHmacSHA512"
	AlgorithmArgon2id = "Argon2id"
)

// New returns a Hasher for the named algorithm with default parameters.
// Matching is case-insensitive; "pbkdf2" and "argon2" are accepted aliases.
func New(algorithm string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", "pbkdf2", strings.ToLower(AlgorithmPBKDF2):
		return NewPBKDF2(), nil
	case "argon2", strings.ToLower(AlgorithmArgon2id):
		return NewArgon2id(), nil
	}
	return nil, &HashError{Algorithm: algorithm, Err: ErrUnsupportedAlgorithm}
}

// NewWithParams returns a Hasher for algorithm with params applied on top
// of the defaults. It rebuilds the hasher a stored credential was made with.
func NewWithParams(algorithm string, params map[string]int) (Hasher, error) {
	h, err := New(algorithm)
	if err != nil {
		return nil, err
	}
	for name, v := range params {
		if err := h.SetParameter(name, v); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Params returns a snapshot of h's parameters.
func Params(h Hasher) map[string]int {
	var names []string
	switch h.Algorithm() {
	case AlgorithmPBKDF2:
		names = []string{ParamIterationCount}
	case AlgorithmArgon2id:
		names = []string{ParamTimeCost, ParamMemoryCost, ParamParallelism}
	}
	out := make(map[string]int, len(names))
	for _, name := range names {
		if v, ok := h.Parameter(name); ok {
			if n, ok := intParam(v); ok {
				out[name] = n
			}
		}
	}
	return out
}

// Algorithms lists the supported algorithm names.
func Algorithms() []string {
	return []string{AlgorithmPBKDF2, AlgorithmArgon2id}
}

// Combine returns salt followed by pepper in a new slice.
func Combine(salt, pepper []byte) []byte {
	out := make([]byte, 0, len(salt)+len(pepper))
	out = append(out, salt...)
	return append(out, pepper...)
}

// Scrub overwrites b with ScrubByte.
func Scrub(b []byte) {
	for i := range b {
		b[i] = ScrubByte
	}
}

// Verify re-hashes password with salt and pepper and compares the result to
// expected in constant time. password is scrubbed. A nil pepper hashes
// with the salt alone.
func Verify(h Hasher, password, salt, pepper, expected []byte) (bool, error) {
	var (
		actual []byte
		err    error
	)
	if pepper == nil {
		actual, err = h.Hash(password, salt)
	} else {
		actual, err = h.HashWithPepper(password, salt, pepper)
	}
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

// intParam converts the accepted integer kinds to int.
func intParam(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint32:
		return int(v), true
	case uint8:
		return int(v), true
	}
	return 0, false
}
