package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Generator produces numeric one-time activation codes from a
// cryptographically secure source.
type Generator struct {
	length int
}

// NewGenerator creates a generator for codes of the given length.
// Lengths outside 4..10 are clamped.
func NewGenerator(length int) *Generator {
	if length < 4 {
		length = 4
	}
	if length > 10 {
		length = 10
	}
	return &Generator{length: length}
}

// Length returns the configured code length.
func (g *Generator) Length() int {
	return g.length
}

// Generate returns a uniformly random numeric code, zero-padded to the
// configured length.
func (g *Generator) Generate() (string, error) {
	max := new(big.Int)
	max.Exp(big.NewInt(10), big.NewInt(int64(g.length)), nil)

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}

	return fmt.Sprintf("%0*d", g.length, n), nil
}

// Validate checks that code has the expected length and is all digits.
func (g *Generator) Validate(code string) bool {
	if len(code) != g.length {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Normalize strips the separators users commonly type when copying a code
// from an email ("123 456", "123-456").
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	code = strings.ReplaceAll(code, " ", "")
	return strings.ReplaceAll(code, "-", "")
}
