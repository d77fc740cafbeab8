// Package shortid generates the fixed-format step identifiers used by
// definition graphs.
package shortid

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Alphabet is the character set step ids are drawn from. It is part of the
// persisted data contract and must not change.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

// Length is the exact length of a step id.
const Length = 10

// New returns a new random id of Length characters over Alphabet.
func New() (string, error) {
	buf := make([]byte, Length)

	_, err := rand.Read(buf)
	if err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	var sb strings.Builder
	for _, b := range buf {
		sb.WriteByte(Alphabet[int(b)%len(Alphabet)])
	}

	return sb.String(), nil
}

// Valid reports whether id has the exact length and alphabet of a step id.
func Valid(id string) bool {
	if len(id) != Length {
		return false
	}

	for i := range len(id) {
		if !strings.ContainsRune(Alphabet, rune(id[i])) {
			return false
		}
	}

	return true
}
