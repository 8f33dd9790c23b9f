package rng

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithProbe_Strong(t *testing.T) {
	src := NewWithProbe(42, func() bool { return true })
	assert.True(t, src.Strong())
	assert.Len(t, src.Bytes(32), 32)
}

func TestNewWithProbe_Fallback(t *testing.T) {
	var calls atomic.Int32
	var seen atomic.Int64
	OnFallback(func(seed int64) {
		calls.Add(1)
		seen.Store(seed)
	})
	t.Cleanup(func() { OnFallback(nil) })

	src := NewWithProbe(1234, func() bool { return false })

	assert.False(t, src.Strong())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int64(1234), seen.Load())
}

func TestWeakSource_Deterministic(t *testing.T) {
	noStrong := func() bool { return false }
	a := NewWithProbe(99, noStrong)
	b := NewWithProbe(99, noStrong)

	assert.Equal(t, a.Bytes(64), b.Bytes(64))
	assert.Equal(t, a.Int64(), b.Int64())
	assert.Equal(t, a.IntN(1000), b.IntN(1000))
}

func TestWeakSource_ReadOddLength(t *testing.T) {
	src := NewWithProbe(7, func() bool { return false })
	buf := make([]byte, 13)
	n, err := src.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 13, n)
}

func TestBoundedDraws(t *testing.T) {
	sources := map[string]Source{
		"strong": NewWithProbe(1, func() bool { return true }),
		"weak":   NewWithProbe(1, func() bool { return false }),
	}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 1000; i++ {
				v := src.IntN(62)
				assert.GreaterOrEqual(t, v, 0)
				assert.Less(t, v, 62)

				w := src.Int64N(16)
				assert.GreaterOrEqual(t, w, int64(0))
				assert.Less(t, w, int64(16))

				assert.GreaterOrEqual(t, src.Int(), 0)
			}
		})
	}
}

func TestBoundedDraws_CoverRange(t *testing.T) {
	src := NewWithProbe(1, func() bool { return true })
	seen := make(map[int]bool)
	for i := 0; i < 2000; i++ {
		seen[src.IntN(16)] = true
	}
	assert.Len(t, seen, 16)
}

func TestIntN_PanicsOnNonPositiveBound(t *testing.T) {
	for _, src := range []Source{
		NewWithProbe(1, func() bool { return true }),
		NewWithProbe(1, func() bool { return false }),
	} {
		assert.Panics(t, func() { src.IntN(0) })
		assert.Panics(t, func() { src.Int64N(-1) })
	}
}

func TestScramble(t *testing.T) {
	// Same input, same seed; neighbouring milliseconds diverge.
	assert.Equal(t, scramble(1700000000000), scramble(1700000000000))
	assert.NotEqual(t, scramble(1700000000000), scramble(1700000000001))
}

func TestScramble_ZeroFactor(t *testing.T) {
	// 31*161 = 0x137F: the low byte is 127, which would zero the product
	// unless replaced by 128.
	assert.NotEqual(t, int64(31*161), scramble(161))
}

func TestDefault_Singleton(t *testing.T) {
	assert.Equal(t, Default(), Default())
	assert.Len(t, Bytes(10), 10)
	assert.Less(t, IntN(5), 5)
	assert.Less(t, Int64N(5), int64(5))
	assert.GreaterOrEqual(t, Int(), 0)
	_ = Int64()
	_ = GenerateSeed()
}

func TestSource_ConcurrentDraws(t *testing.T) {
	src := NewWithProbe(5, func() bool { return false })

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				src.Bytes(16)
				src.IntN(62)
			}
		}()
	}
	wg.Wait()
}

func BenchmarkStrongIntN(b *testing.B) {
	src := NewWithProbe(1, func() bool { return true })
	for i := 0; i < b.N; i++ {
		src.IntN(62)
	}
}
