package hashing

import (
	"bytes"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSalt is a 16-byte salt.
var fixedSalt = []byte{
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
	0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
}

func pw(s string) []byte { return []byte(s) }

func TestPBKDF2_KnownVector(t *testing.T) {
	h := NewPBKDF2WithIterations(1)
	got, err := h.Hash(pw("password"), pw("salt"))
	require.NoError(t, err)

	want := "867f70cf1ade02cff3752599a3a53dc4af34c7a669815ae5d513554e1c8cf252" +
		"c02d470a285a0501bad999bfe943c08f050235d7d68b1da55e63f73b60a57fce"
	assert.Equal(t, want, hex.EncodeToString(got))
}

func TestPBKDF2_DefaultsDeterministic(t *testing.T) {
	h := NewPBKDF2()
	assert.Equal(t, AlgorithmPBKDF2, h.Algorithm())
	assert.Equal(t, DefaultIterationCount, h.Iterations())

	first, err := h.Hash(pw("correct horse"), fixedSalt)
	require.NoError(t, err)
	second, err := h.Hash(pw("correct horse"), fixedSalt)
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.Equal(t, first, second)

	changed := bytes.Clone(fixedSalt)
	changed[15] ^= 0x01
	third, err := h.Hash(pw("correct horse"), changed)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestPBKDF2_ScrubsPassword(t *testing.T) {
	h := NewPBKDF2WithIterations(10)
	buf := pw("hunter2")

	key, err := h.Hash(buf, fixedSalt)
	require.NoError(t, err)

	assert.Equal(t, bytes.Repeat([]byte{ScrubByte}, 7), buf)

	again, err := h.Hash(pw("hunter2"), fixedSalt)
	require.NoError(t, err)
	assert.Equal(t, key, again, "scrub must not affect the returned hash")
}

func TestHashWithPepper_EqualsCombinedSalt(t *testing.T) {
	pepper := pw("application-pepper")

	for _, h := range []Hasher{NewPBKDF2WithIterations(100), fastArgon2(t)} {
		t.Run(h.Algorithm(), func(t *testing.T) {
			peppered, err := h.HashWithPepper(pw("s3cret"), fixedSalt, pepper)
			require.NoError(t, err)

			combined, err := h.Hash(pw("s3cret"), Combine(fixedSalt, pepper))
			require.NoError(t, err)

			assert.Equal(t, combined, peppered)

			plain, err := h.Hash(pw("s3cret"), fixedSalt)
			require.NoError(t, err)
			assert.NotEqual(t, plain, peppered)
		})
	}
}

func TestCombine(t *testing.T) {
	s := []byte{1, 2}
	p := []byte{3}
	c := Combine(s, p)

	assert.Equal(t, []byte{1, 2, 3}, c)
	c[0] = 9
	assert.Equal(t, byte(1), s[0], "Combine must not alias its inputs")
	assert.Empty(t, Combine(nil, nil))
}

func TestPBKDF2_Parameters(t *testing.T) {
	h := NewPBKDF2()

	v, ok := h.Parameter(ParamIterationCount)
	require.True(t, ok)
	assert.Equal(t, DefaultIterationCount, v)

	_, ok = h.Parameter("SALT_LENGTH")
	assert.False(t, ok)

	require.NoError(t, h.SetParameter(ParamIterationCount, 1000))
	assert.Equal(t, 1000, h.Iterations())

	require.NoError(t, h.SetParameter(ParamIterationCount, int64(5_000_000)))
	assert.Equal(t, 5_000_000, h.Iterations(), "no upper bound")

	require.NoError(t, h.SetParameter("UNKNOWN", 1))

	old, ok := h.RemoveParameter(ParamIterationCount)
	require.True(t, ok)
	assert.Equal(t, 5_000_000, old)
	assert.Equal(t, DefaultIterationCount, h.Iterations())

	_, ok = h.RemoveParameter("UNKNOWN")
	assert.False(t, ok)

	require.NoError(t, h.SetParameter(ParamIterationCount, 7))
	h.Reset()
	assert.Equal(t, DefaultIterationCount, h.Iterations())
}

func TestPBKDF2_InvalidParameter(t *testing.T) {
	h := NewPBKDF2()

	for _, bad := range []any{0, -1, "65536", 1.5} {
		err := h.SetParameter(ParamIterationCount, bad)
		var he *HashError
		require.ErrorAs(t, err, &he, "value %v", bad)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	}
	assert.Equal(t, DefaultIterationCount, h.Iterations())
}

func TestPBKDF2_NonPositiveIterationsFailHash(t *testing.T) {
	h := NewPBKDF2WithIterations(0)
	buf := pw("pw")

	_, err := h.Hash(buf, fixedSalt)
	var he *HashError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, AlgorithmPBKDF2, he.Algorithm)
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestNew(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", AlgorithmPBKDF2},
		{"pbkdf2", AlgorithmPBKDF2},
		{"PBKDF2WithHmacSHA512", AlgorithmPBKDF2},
		{"argon2", AlgorithmArgon2id},
		{"ARGON2ID", AlgorithmArgon2id},
	}
	for _, tt := range tests {
		h, err := New(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, h.Algorithm())
	}
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New("bcrypt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	assert.Contains(t, err.Error(), "bcrypt")
}

func TestAlgorithms(t *testing.T) {
	for _, name := range Algorithms() {
		_, err := New(name)
		assert.NoError(t, err, name)
	}
}

func TestVerify(t *testing.T) {
	h := NewPBKDF2WithIterations(50)
	pepper := pw("pep")

	stored, err := h.HashWithPepper(pw("open sesame"), fixedSalt, pepper)
	require.NoError(t, err)

	ok, err := Verify(h, pw("open sesame"), fixedSalt, pepper, stored)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(h, pw("open sesamE"), fixedSalt, pepper, stored)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Verify(h, pw("open sesame"), fixedSalt, nil, stored)
	require.NoError(t, err)
	assert.False(t, ok, "missing pepper must not verify")
}

func TestVerify_PropagatesHashError(t *testing.T) {
	h := NewPBKDF2WithIterations(-3)
	_, err := Verify(h, pw("x"), fixedSalt, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestScrub(t *testing.T) {
	b := pw("abc")
	Scrub(b)
	assert.Equal(t, pw("***"), b)
	Scrub(nil)
}

func TestPBKDF2_ConcurrentParameterAccess(t *testing.T) {
	h := NewPBKDF2WithIterations(10)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = h.SetParameter(ParamIterationCount, 10+n)
		}(i)
		go func() {
			defer wg.Done()
			if _, err := h.Hash(pw("pw"), fixedSalt); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}

func BenchmarkPBKDF2Default(b *testing.B) {
	h := NewPBKDF2()
	for i := 0; i < b.N; i++ {
		h.Hash(pw("benchmark"), fixedSalt)
	}
}

func TestNewWithParams_RoundTripsParams(t *testing.T) {
	a := NewArgon2id()
	require.NoError(t, a.SetParameter(ParamTimeCost, 3))
	params := Params(a)
	assert.Equal(t, map[string]int{
		ParamTimeCost:    3,
		ParamMemoryCost:  DefaultMemoryCost,
		ParamParallelism: DefaultParallelism,
	}, params)

	b, err := NewWithParams(AlgorithmArgon2id, params)
	require.NoError(t, err)
	assert.Equal(t, params, Params(b))

	p, err := NewWithParams("pbkdf2", map[string]int{ParamIterationCount: 1000})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{ParamIterationCount: 1000}, Params(p))
}

func TestNewWithParams_Errors(t *testing.T) {
	_, err := NewWithParams("md5", nil)
	var he *HashError
	assert.ErrorAs(t, err, &he)

	_, err = NewWithParams(AlgorithmArgon2id, map[string]int{ParamParallelism: 0})
	assert.Error(t, err)
}
