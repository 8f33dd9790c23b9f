package hashing

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameter names.
const (
	ParamTimeCost    = "TIME_COST"
	ParamMemoryCost  = "MEMORY_COST"
	ParamParallelism = "PARALLELISM"
)

// Argon2id defaults.
const (
	// DefaultTimeCost is the number of passes.
	DefaultTimeCost = 2

	// DefaultMemoryCost is the memory in KiB (16 MiB).
	DefaultMemoryCost = 16384

	// DefaultParallelism is the number of lanes.
	DefaultParallelism = 2
)

// Argon2id hashes with argon2id. Parameters are validated against the
// ranges argon2.IDKey accepts.
type Argon2id struct {
	mu     sync.RWMutex
	params map[string]int
}

var _ Hasher = (*Argon2id)(nil)

// NewArgon2id returns an Argon2id hasher with default parameters.
func NewArgon2id() *Argon2id {
	a := &Argon2id{}
	a.Reset()
	return a
}

func argon2Defaults() map[string]int {
	return map[string]int{
		ParamTimeCost:    DefaultTimeCost,
		ParamMemoryCost:  DefaultMemoryCost,
		ParamParallelism: DefaultParallelism,
	}
}

// Algorithm implements Hasher.
func (a *Argon2id) Algorithm() string { return AlgorithmArgon2id }

// Parameter implements Hasher.
func (a *Argon2id) Parameter(name string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.params[name]
	if !ok {
		return nil, false
	}
	return v, true
}

// SetParameter implements Hasher.
func (a *Argon2id) SetParameter(name string, value any) error {
	if _, known := argon2Defaults()[name]; !known {
		return nil
	}
	n, ok := intParam(value)
	if !ok || !validArgon2(name, n) {
		return &HashError{
			Algorithm: AlgorithmArgon2id,
			Err:       fmt.Errorf("%w: %s=%v", ErrInvalidParameter, name, value),
		}
	}
	a.mu.Lock()
	a.params[name] = n
	a.mu.Unlock()
	return nil
}

func validArgon2(name string, n int) bool {
	switch name {
	case ParamParallelism:
		return n >= 1 && n <= 255
	case ParamMemoryCost:
		return n >= 8 && uint64(n) <= math.MaxUint32
	default:
		return n >= 1 && uint64(n) <= math.MaxUint32
	}
}

// RemoveParameter implements Hasher.
func (a *Argon2id) RemoveParameter(name string) (any, bool) {
	def, known := argon2Defaults()[name]
	if !known {
		return nil, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	old := a.params[name]
	a.params[name] = def
	return old, true
}

// Reset implements Hasher.
func (a *Argon2id) Reset() {
	a.mu.Lock()
	a.params = argon2Defaults()
	a.mu.Unlock()
}

// Hash implements Hasher.
func (a *Argon2id) Hash(password, salt []byte) ([]byte, error) {
	a.mu.RLock()
	t, m, p := a.params[ParamTimeCost], a.params[ParamMemoryCost], a.params[ParamParallelism]
	a.mu.RUnlock()

	// argon2 requires memory >= 8*parallelism.
	if m < 8*p {
		return nil, &HashError{
			Algorithm: AlgorithmArgon2id,
			Err:       fmt.Errorf("%w: %s=%d below 8*%s", ErrInvalidParameter, ParamMemoryCost, m, ParamParallelism),
		}
	}
	key := argon2.IDKey(password, salt, uint32(t), uint32(m), uint8(p), KeyLength)
	Scrub(password)
	return key, nil
}

// HashWithPepper implements Hasher.
func (a *Argon2id) HashWithPepper(password, salt, pepper []byte) ([]byte, error) {
	return a.Hash(password, Combine(salt, pepper))
}
