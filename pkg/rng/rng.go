// Package rng provides the process-wide random source used by websec.
package rng

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"math/bits"
	mrand "math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

// Source is a stream of uniformly distributed random values.
//
// Bounded draws panic when the bound is not positive, mirroring math/rand.
type Source interface {
	// Read fills p with random bytes. It never fails.
	Read(p []byte) (int, error)
	// Bytes returns n random bytes.
	Bytes(n int) []byte
	// Int returns a non-negative random int.
	Int() int
	// IntN returns a random int in [0, n).
	IntN(n int) int
	// Int64 returns a random int64 over the full range.
	Int64() int64
	// Int64N returns a random int64 in [0, n).
	Int64N(n int64) int64
	// Strong reports whether the source is backed by a CSPRNG.
	Strong() bool
}

// Probe reports whether a strong random generator is usable on this host.
type Probe func() bool

// Probe used by New. Tests replace it through NewWithProbe.
var defaultProbe Probe = probeCryptoRand

// fallbackHook is invoked whenever a weak source is constructed.
var fallbackHook atomic.Pointer[func(seed int64)]

// OnFallback registers fn to be called every time a Source falls back to the
// non-cryptographic generator. Passing nil removes the hook.
func OnFallback(fn func(seed int64)) {
	if fn == nil {
		fallbackHook.Store(nil)
		return
	}
	fallbackHook.Store(&fn)
}

// Seed derives a seed from the wall clock.
//
// The value runs the current Unix millisecond count through a small
// multiplicative scrambler so that two sources created in the same
// millisecond by different call sites do not share state. It carries no
// entropy beyond the clock.
func Seed() int64 {
	return scramble(time.Now().UnixMilli())
}

func scramble(millis int64) int64 {
	p := int64(7691)
	t := 31 * millis
	for i := 0; i < 8; i++ {
		n := 127 - int64(0xFF&(uint64(t)>>(8*i)))
		if n == 0 {
			n = 128
		}
		p *= n
	}
	return p ^ t
}

// New returns a strong Source when crypto/rand is usable, otherwise a weak
// Source seeded with seed.
func New(seed int64) Source {
	return NewWithProbe(seed, defaultProbe)
}

// NewWithProbe is New with an explicit availability check.
func NewWithProbe(seed int64, probe Probe) Source {
	if probe != nil && probe() {
		return strongSource{}
	}
	if fn := fallbackHook.Load(); fn != nil {
		(*fn)(seed)
	}
	return newWeakSource(seed)
}

func probeCryptoRand() bool {
	var b [1]byte
	_, err := io.ReadFull(rand.Reader, b[:])
	return err == nil
}

var (
	defaultOnce   sync.Once
	defaultSource Source
)

// Default returns the lazily initialised process-wide Source.
func Default() Source {
	defaultOnce.Do(func() {
		defaultSource = New(Seed())
	})
	return defaultSource
}

// GenerateSeed returns a seed drawn from the process-wide Source.
func GenerateSeed() int64 {
	s := Default()
	return s.Int64() ^ s.Int64()
}

// Bytes returns n random bytes from the process-wide Source.
func Bytes(n int) []byte { return Default().Bytes(n) }

// Int returns a non-negative int from the process-wide Source.
func Int() int { return Default().Int() }

// IntN returns an int in [0, n) from the process-wide Source.
func IntN(n int) int { return Default().IntN(n) }

// Int64 returns an int64 from the process-wide Source.
func Int64() int64 { return Default().Int64() }

// Int64N returns an int64 in [0, n) from the process-wide Source.
func Int64N(n int64) int64 { return Default().Int64N(n) }

// strongSource draws from crypto/rand. crypto/rand is safe for concurrent
// use, so the type is stateless.
type strongSource struct{}

func (strongSource) Strong() bool { return true }

func (strongSource) Read(p []byte) (int, error) {
	// crypto/rand.Read does not return an error on supported platforms.
	if _, err := rand.Read(p); err != nil {
		panic("rng: crypto/rand failed: " + err.Error())
	}
	return len(p), nil
}

func (s strongSource) Bytes(n int) []byte {
	b := make([]byte, n)
	s.Read(b)
	return b
}

func (s strongSource) uint64() uint64 {
	var b [8]byte
	s.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

func (s strongSource) Int() int { return int(uint(s.uint64()) << 1 >> 1) }

func (s strongSource) Int64() int64 { return int64(s.uint64()) }

func (s strongSource) IntN(n int) int {
	if n <= 0 {
		panic("rng: invalid argument to IntN")
	}
	return int(s.uint64n(uint64(n)))
}

func (s strongSource) Int64N(n int64) int64 {
	if n <= 0 {
		panic("rng: invalid argument to Int64N")
	}
	return int64(s.uint64n(uint64(n)))
}

// uint64n returns a uniform value in [0, n) using Lemire's multiply-shift
// rejection method.
func (s strongSource) uint64n(n uint64) uint64 {
	hi, lo := bits.Mul64(s.uint64(), n)
	if lo < n {
		thresh := -n % n
		for lo < thresh {
			hi, lo = bits.Mul64(s.uint64(), n)
		}
	}
	return hi
}

// weakSource is the seeded fallback. math/rand/v2 generators are not safe
// for concurrent use, so every draw holds mu.
type weakSource struct {
	mu sync.Mutex
	r  *mrand.Rand
}

func newWeakSource(seed int64) *weakSource {
	return &weakSource{
		r: mrand.New(mrand.NewPCG(uint64(seed), uint64(scramble(seed)))),
	}
}

func (w *weakSource) Strong() bool { return false }

func (w *weakSource) Read(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := 0; i < len(p); i += 8 {
		v := w.r.Uint64()
		for j := 0; j < 8 && i+j < len(p); j++ {
			p[i+j] = byte(v >> (8 * j))
		}
	}
	return len(p), nil
}

func (w *weakSource) Bytes(n int) []byte {
	b := make([]byte, n)
	w.Read(b)
	return b
}

func (w *weakSource) Int() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.r.Int()
}

func (w *weakSource) IntN(n int) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.r.IntN(n)
}

func (w *weakSource) Int64() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return int64(w.r.Uint64())
}

func (w *weakSource) Int64N(n int64) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.r.Int64N(n)
}
