package token

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/yndnr/websec-go/pkg/rng"
)

// Token length bounds, in characters.
const (
	MinLength     = 32
	MaxLength     = 4096
	DefaultLength = 64
)

// alphabet holds the alphanumeric symbols. Hexadecimal tokens use the first
// 16 entries.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	radixAlphanumeric = len(alphabet)
	radixHexadecimal  = 16
)

// Encoding selects how a token value is rendered.
type Encoding string

const (
	EncodingAlphanumeric Encoding = "alphanumeric"
	EncodingHexadecimal  Encoding = "hexadecimal"
	EncodingBase64       Encoding = "base64"
)

// ParseEncoding maps a configuration string to an Encoding.
// "hex" and "alnum" are accepted as short forms.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alphanumeric", "alnum", "base62":
		return EncodingAlphanumeric, nil
	case "hexadecimal", "hex":
		return EncodingHexadecimal, nil
	case "base64", "b64":
		return EncodingBase64, nil
	}
	return "", fmt.Errorf("token: unknown encoding %q", s)
}

// ClampLength returns n limited to [MinLength, MaxLength].
func ClampLength(n int) int {
	if n < MinLength {
		return MinLength
	}
	if n > MaxLength {
		return MaxLength
	}
	return n
}

// Base64ByteCount returns the number of random bytes drawn for a base64
// token of the requested length: 3/4 of the clamped length, rounded up to a
// multiple of 4.
func Base64ByteCount(length int) int {
	n := 3 * ClampLength(length) / 4
	if r := n % 4; r > 0 {
		n += 4 - r
	}
	return n
}

// Generator mints tokens. A single Generator is safe for concurrent use.
type Generator struct {
	src rng.Source
	now func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithSource sets the random source.
func WithSource(src rng.Source) Option {
	return func(g *Generator) {
		g.src = src
	}
}

// WithClock sets the clock used to stamp issue times.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a Generator with its own random source seeded from
// the wall clock, unless WithSource is given.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	if g.src == nil {
		g.src = rng.New(rng.Seed())
	}
	return g
}

// Strong reports whether the generator draws from a CSPRNG.
func (g *Generator) Strong() bool {
	return g.src.Strong()
}

// Alphanumeric creates a token whose value is length symbols from
// [0-9A-Za-z].
func (g *Generator) Alphanumeric(id string, length int, expiresAt time.Time) Token {
	return g.issue(id, g.symbols(length, radixAlphanumeric), expiresAt)
}

// Hexadecimal creates a token whose value is length symbols from [0-9A-F].
func (g *Generator) Hexadecimal(id string, length int, expiresAt time.Time) Token {
	return g.issue(id, g.symbols(length, radixHexadecimal), expiresAt)
}

// Base64 creates a token from Base64ByteCount(length) random bytes encoded
// with the standard alphabet and no padding.
func (g *Generator) Base64(id string, length int, expiresAt time.Time) Token {
	raw := g.src.Bytes(Base64ByteCount(length))
	return g.issue(id, base64.RawStdEncoding.EncodeToString(raw), expiresAt)
}

// Generate dispatches on enc. Unknown encodings fall back to alphanumeric.
func (g *Generator) Generate(enc Encoding, id string, length int, expiresAt time.Time) Token {
	switch enc {
	case EncodingHexadecimal:
		return g.Hexadecimal(id, length, expiresAt)
	case EncodingBase64:
		return g.Base64(id, length, expiresAt)
	default:
		return g.Alphanumeric(id, length, expiresAt)
	}
}

func (g *Generator) symbols(length, radix int) string {
	length = ClampLength(length)
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(alphabet[g.src.IntN(radix)])
	}
	return b.String()
}

func (g *Generator) issue(id, value string, expiresAt time.Time) Token {
	return NewWithValue(id, value, g.now(), expiresAt)
}
