// Package salt generates random salts for credential hashing.
//
// Salts are stored next to the credential hash they were used for. Lengths
// outside [MinLength, MaxLength] are clamped rather than rejected.
package salt

import (
	"sync"

	"github.com/yndnr/websec-go/pkg/rng"
)

// Salt length bounds in bytes.
const (
	MinLength     = 16
	MaxLength     = 64
	DefaultLength = 32
)

// Clamp returns n limited to [MinLength, MaxLength].
func Clamp(n int) int {
	if n < MinLength {
		return MinLength
	}
	if n > MaxLength {
		return MaxLength
	}
	return n
}

// Generator produces salts from a random source.
type Generator struct {
	src rng.Source
}

// NewGenerator creates a Generator backed by src.
// A nil src gets a fresh source seeded from the process-wide one.
func NewGenerator(src rng.Source) *Generator {
	if src == nil {
		src = rng.New(rng.GenerateSeed())
	}
	return &Generator{src: src}
}

// Generate returns Clamp(n) random bytes.
func (g *Generator) Generate(n int) []byte {
	return g.src.Bytes(Clamp(n))
}

// Strong reports whether the underlying source is a CSPRNG.
func (g *Generator) Strong() bool {
	return g.src.Strong()
}

var (
	defaultOnce sync.Once
	defaultGen  *Generator
)

func defaultGenerator() *Generator {
	defaultOnce.Do(func() {
		defaultGen = NewGenerator(nil)
	})
	return defaultGen
}

// Generate returns Clamp(n) random bytes from the package generator.
func Generate(n int) []byte {
	return defaultGenerator().Generate(n)
}
