package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ShortenString cuts s to l runes and appends "..." if it was longer. A
// length of 0 disables shortening.
func ShortenString(s string, l int) string {
	r := []rune(s)
	if len(r) > l && l != 0 {
		return fmt.Sprintf("%s...", string(r[:l]))
	}
	return s
}

// RandomString appends a dash and 16 random hex characters to base.
func RandomString(base string) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", base, hex.EncodeToString(b)), nil
}
