// Package random supplies identifiers and share codes. Tests swap in
// mocks.MockRandom for predictable values.
package random

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// Random generates the unguessable values the tracker hands out
type Random interface {
	// String draws length characters uniformly from alphabet
	String(length int, alphabet string) string

	// UUID returns a version 4 UUID in canonical form
	UUID() string
}

// CryptoRandom draws from crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// String panics if the system entropy source fails, since a share code
// built from a broken source could be guessed.
func (r *CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || alphabet == "" {
		return ""
	}
	size := big.NewInt(int64(len(alphabet)))
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			panic("random: entropy source failed: " + err.Error())
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code)
}

func (r *CryptoRandom) UUID() string {
	return uuid.New().String()
}
