package command

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	serverconfig "github.com/yndnr/websec-go/internal/server/config"
	"github.com/yndnr/websec-go/pkg/hashing"
	"github.com/yndnr/websec-go/pkg/salt"
	"github.com/yndnr/websec-go/pkg/token"
)

// TokenOutput is one minted token.
type TokenOutput struct {
	ID        string    `json:"id"`
	Encoding  string    `json:"encoding"`
	Value     string    `json:"value"`
	IssuedAt  time.Time `json:"issued_at" table:"wide"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenCommand mints random tokens.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Generate random tokens",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "encoding", Aliases: []string{"e"}, Value: string(token.EncodingAlphanumeric), Usage: "alphanumeric, hexadecimal or base64"},
			&cli.StringFlag{Name: "id", Value: "token", Usage: "token identifier"},
			&cli.IntFlag{Name: "length", Aliases: []string{"l"}, Value: token.DefaultLength, Usage: fmt.Sprintf("length in characters (%d-%d)", token.MinLength, token.MaxLength)},
			&cli.DurationFlag{Name: "ttl", Value: 30 * time.Minute, Usage: "lifetime"},
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 1, Usage: "number of tokens"},
		},
		Action: tokenAction,
	}
}

func tokenAction(c *cli.Context) error {
	enc, err := token.ParseEncoding(c.String("encoding"))
	if err != nil {
		return err
	}
	if c.Int("count") < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	if c.Duration("ttl") <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	gen := token.NewGenerator()
	if !gen.Strong() {
		warn(c, "no cryptographic random source available; tokens are predictable")
	}

	out := make([]TokenOutput, 0, c.Int("count"))
	for i := 0; i < c.Int("count"); i++ {
		t := gen.Generate(enc, c.String("id"), c.Int("length"), time.Now().Add(c.Duration("ttl")))
		out = append(out, TokenOutput{
			ID:        t.ID(),
			Encoding:  string(enc),
			Value:     t.Value(),
			IssuedAt:  t.IssuedAt(),
			ExpiresAt: t.ExpiresAt(),
		})
	}
	return render(c, out)
}

// SaltOutput is one generated salt.
type SaltOutput struct {
	Length int    `json:"length"`
	Salt   string `json:"salt"`
}

// SaltCommand generates salts.
func SaltCommand() *cli.Command {
	return &cli.Command{
		Name:  "salt",
		Usage: "Generate a random salt",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "length", Aliases: []string{"l"}, Value: salt.DefaultLength, Usage: fmt.Sprintf("length in bytes (%d-%d)", salt.MinLength, salt.MaxLength)},
			&cli.StringFlag{Name: "encoding", Aliases: []string{"e"}, Value: "hex", Usage: "hex or base64"},
		},
		Action: func(c *cli.Context) error {
			gen := salt.NewGenerator(nil)
			if !gen.Strong() {
				warn(c, "no cryptographic random source available; salt is predictable")
			}
			b := gen.Generate(c.Int("length"))
			s, err := encodeBytes(c.String("encoding"), b)
			if err != nil {
				return err
			}
			return render(c, SaltOutput{Length: len(b), Salt: s})
		},
	}
}

// HashOutput is a derived password hash.
type HashOutput struct {
	Algorithm string         `json:"algorithm"`
	Params    map[string]int `json:"params"`
	Salt      string         `json:"salt"`
	Hash      string         `json:"hash"`
	Peppered  bool           `json:"peppered"`
}

func hashFlags() []cli.Flag {
	def := serverconfig.Default().Hash
	return []cli.Flag{
		&cli.StringFlag{Name: "algorithm", Aliases: []string{"a"}, Value: def.Algorithm, Usage: "pbkdf2 or argon2"},
		&cli.IntFlag{Name: "iterations", Value: def.Iterations, Usage: "PBKDF2 iteration count"},
		&cli.IntFlag{Name: "time-cost", Value: def.TimeCost, Usage: "Argon2id passes"},
		&cli.IntFlag{Name: "memory-cost", Value: def.MemoryCost, Usage: "Argon2id memory in KiB"},
		&cli.IntFlag{Name: "parallelism", Value: def.Parallelism, Usage: "Argon2id lanes"},
		&cli.StringFlag{Name: "pepper", EnvVars: []string{"WEBSEC_HASH__PEPPER"}, Usage: "application pepper"},
		&cli.StringFlag{Name: "encoding", Aliases: []string{"e"}, Value: "hex", Usage: "salt and hash encoding: hex or base64"},
	}
}

func hasherFromFlags(c *cli.Context) (hashing.Hasher, error) {
	return serverconfig.NewHasher(&serverconfig.HashSection{
		Algorithm:   c.String("algorithm"),
		Iterations:  c.Int("iterations"),
		TimeCost:    c.Int("time-cost"),
		MemoryCost:  c.Int("memory-cost"),
		Parallelism: c.Int("parallelism"),
	})
}

func pepperFromFlags(c *cli.Context) []byte {
	if p := c.String("pepper"); p != "" {
		return []byte(p)
	}
	return nil
}

// HashCommand hashes a password read from standard input.
func HashCommand() *cli.Command {
	flags := append(hashFlags(),
		&cli.StringFlag{Name: "salt", Usage: "salt in the selected encoding (generated when empty)"},
		&cli.IntFlag{Name: "salt-length", Value: salt.DefaultLength, Usage: "generated salt length in bytes"},
	)
	return &cli.Command{
		Name:      "hash",
		Usage:     "Hash a password read from standard input",
		UsageText: "echo -n 'password' | websec-cli hash --algorithm argon2",
		Flags:     flags,
		Action:    hashAction,
	}
}

func hashAction(c *cli.Context) error {
	h, err := hasherFromFlags(c)
	if err != nil {
		return err
	}
	var saltBytes []byte
	if s := c.String("salt"); s != "" {
		if saltBytes, err = decodeBytes(c.String("encoding"), s); err != nil {
			return fmt.Errorf("salt: %w", err)
		}
	} else {
		saltBytes = salt.NewGenerator(nil).Generate(c.Int("salt-length"))
	}
	password, err := readSecret(c.App.Reader)
	if err != nil {
		return err
	}

	pepper := pepperFromFlags(c)
	var sum []byte
	if pepper == nil {
		sum, err = h.Hash(password, saltBytes)
	} else {
		sum, err = h.HashWithPepper(password, saltBytes, pepper)
	}
	if err != nil {
		return err
	}

	enc := c.String("encoding")
	saltStr, err := encodeBytes(enc, saltBytes)
	if err != nil {
		return err
	}
	hashStr, _ := encodeBytes(enc, sum)
	return render(c, HashOutput{
		Algorithm: h.Algorithm(),
		Params:    hashing.Params(h),
		Salt:      saltStr,
		Hash:      hashStr,
		Peppered:  pepper != nil,
	})
}

// VerifyOutput reports a verification result.
type VerifyOutput struct {
	Algorithm string `json:"algorithm"`
	Match     bool   `json:"match"`
}

// VerifyCommand checks a password read from standard input against a hash.
// It exits with status 1 on mismatch.
func VerifyCommand() *cli.Command {
	flags := append(hashFlags(),
		&cli.StringFlag{Name: "salt", Required: true, Usage: "salt in the selected encoding"},
		&cli.StringFlag{Name: "hash", Required: true, Usage: "expected hash in the selected encoding"},
	)
	return &cli.Command{
		Name:   "verify",
		Usage:  "Verify a password read from standard input against a hash",
		Flags:  flags,
		Action: verifyAction,
	}
}

func verifyAction(c *cli.Context) error {
	h, err := hasherFromFlags(c)
	if err != nil {
		return err
	}
	enc := c.String("encoding")
	saltBytes, err := decodeBytes(enc, c.String("salt"))
	if err != nil {
		return fmt.Errorf("salt: %w", err)
	}
	expected, err := decodeBytes(enc, c.String("hash"))
	if err != nil {
		return fmt.Errorf("hash: %w", err)
	}
	password, err := readSecret(c.App.Reader)
	if err != nil {
		return err
	}

	ok, err := hashing.Verify(h, password, saltBytes, pepperFromFlags(c), expected)
	if err != nil {
		return err
	}
	if err := render(c, VerifyOutput{Algorithm: h.Algorithm(), Match: ok}); err != nil {
		return err
	}
	if !ok {
		return cli.Exit("password does not match", 1)
	}
	return nil
}

func encodeBytes(enc string, b []byte) (string, error) {
	switch strings.ToLower(enc) {
	case "hex":
		return hex.EncodeToString(b), nil
	case "base64", "b64":
		return base64.StdEncoding.EncodeToString(b), nil
	}
	return "", fmt.Errorf("unknown encoding %q (want hex or base64)", enc)
}

func decodeBytes(enc, s string) ([]byte, error) {
	switch strings.ToLower(enc) {
	case "hex":
		return hex.DecodeString(s)
	case "base64", "b64":
		return base64.StdEncoding.DecodeString(s)
	}
	return nil, fmt.Errorf("unknown encoding %q (want hex or base64)", enc)
}
