package hashing

import (
	"crypto/sha512"
	"fmt"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

// ParamIterationCount names the PBKDF2 work factor.
const ParamIterationCount = "ITERATION_COUNT"

// DefaultIterationCount is the PBKDF2 default work factor.
const DefaultIterationCount = 65536

// PBKDF2 hashes with PBKDF2 over HMAC-SHA-512.
//
// Any positive iteration count is accepted; no upper bound is enforced.
type PBKDF2 struct {
	mu         sync.RWMutex
	iterations int
}

var _ Hasher = (*PBKDF2)(nil)

// NewPBKDF2 returns a PBKDF2 hasher with DefaultIterationCount.
func NewPBKDF2() *PBKDF2 {
	return NewPBKDF2WithIterations(DefaultIterationCount)
}

// NewPBKDF2WithIterations returns a PBKDF2 hasher with the given work
// factor. A non-positive value makes Hash fail with a HashError.
func NewPBKDF2WithIterations(iterations int) *PBKDF2 {
	return &PBKDF2{iterations: iterations}
}

// Algorithm implements Hasher.
func (p *PBKDF2) Algorithm() string { return AlgorithmPBKDF2 }

// Iterations returns the current work factor.
func (p *PBKDF2) Iterations() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.iterations
}

// Parameter implements Hasher.
func (p *PBKDF2) Parameter(name string) (any, bool) {
	if name != ParamIterationCount {
		return nil, false
	}
	return p.Iterations(), true
}

// SetParameter implements Hasher.
func (p *PBKDF2) SetParameter(name string, value any) error {
	if name != ParamIterationCount {
		return nil
	}
	n, ok := intParam(value)
	if !ok || n <= 0 {
		return &HashError{
			Algorithm: AlgorithmPBKDF2,
			Err:       fmt.Errorf("%w: %s=%v", ErrInvalidParameter, name, value),
		}
	}
	p.mu.Lock()
	p.iterations = n
	p.mu.Unlock()
	return nil
}

// RemoveParameter implements Hasher.
func (p *PBKDF2) RemoveParameter(name string) (any, bool) {
	if name != ParamIterationCount {
		return nil, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.iterations
	p.iterations = DefaultIterationCount
	return old, true
}

// Reset implements Hasher.
func (p *PBKDF2) Reset() {
	p.mu.Lock()
	p.iterations = DefaultIterationCount
	p.mu.Unlock()
}

// Hash implements Hasher.
func (p *PBKDF2) Hash(password, salt []byte) ([]byte, error) {
	iterations := p.Iterations()
	if iterations <= 0 {
		return nil, &HashError{
			Algorithm: AlgorithmPBKDF2,
			Err:       fmt.Errorf("%w: %s=%d", ErrInvalidParameter, ParamIterationCount, iterations),
		}
	}
	key := pbkdf2.Key(password, salt, iterations, KeyLength, sha512.New)
	Scrub(password)
	return key, nil
}

// HashWithPepper implements Hasher.
func (p *PBKDF2) HashWithPepper(password, salt, pepper []byte) ([]byte, error) {
	return p.Hash(password, Combine(salt, pepper))
}
