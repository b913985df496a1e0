// Package random produces fixed-length strings from fixed alphabets.
//
// The package-level functions draw from the runtime's math/rand/v2 generator
// and are NOT suitable where unpredictability is a security property. Use a
// Generator over a cryptographically strong source (rand.NewChaCha8 seeded
// from crypto/rand) for that.
package random

import "math/rand/v2"

// Alphabets.
const (
	DigitSet      = "1234567890"
	LowerSet      = "abcdefghijklmnopqrstuvwxyz"
	UpperSet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	LetterSet     = LowerSet + UpperSet
	DigitLowerSet = DigitSet + LowerSet
	DigitUpperSet = DigitSet + UpperSet
	AlnumSet      = DigitSet + LowerSet + UpperSet
)

const (
	DefaultLength = 16
	NonceLength   = 32
)

// Generator draws characters from a single rand.Rand. A Generator built on a
// non-concurrent source must not be shared between goroutines.
type Generator struct {
	intN func(n int) int
}

// New returns a Generator reading from src.
func New(src rand.Source) *Generator {
	r := rand.New(src)
	return &Generator{intN: r.IntN}
}

var global = &Generator{intN: rand.IntN}

// String picks length characters independently and uniformly, with
// replacement, from alphabet.
func (g *Generator) String(length int, alphabet string) string {
	if length <= 0 || alphabet == "" {
		return ""
	}
	chars := []rune(alphabet)
	out := make([]rune, length)
	for i := range out {
		out[i] = chars[g.intN(len(chars))]
	}
	return string(out)
}

func String(length int, alphabet string) string { return global.String(length, alphabet) }

func Digits(length int) string       { return String(length, DigitSet) }
func Lower(length int) string        { return String(length, LowerSet) }
func Upper(length int) string        { return String(length, UpperSet) }
func LowerUpper(length int) string   { return String(length, LetterSet) }
func DigitsLower(length int) string  { return String(length, DigitLowerSet) }
func DigitsUpper(length int) string  { return String(length, DigitUpperSet) }
func Alphanumeric(length int) string { return String(length, AlnumSet) }

// Str is shorthand for Alphanumeric.
func Str(length int) string { return Alphanumeric(length) }

// Nonce returns a 32-character alphanumeric string for request signing.
func Nonce() string { return Alphanumeric(NonceLength) }
