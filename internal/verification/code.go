// Package verification links Telegram chats to accounts. Unverified chats get
// a fresh one-time code on every message; the code is redeemed out of band
// (HTTP API or CLI) by the account it should be linked to.
package verification

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Alphabet omits characters that are easy to confuse (0/O, 1/I/L).
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewCode returns a uniformly random code of the given length.
func NewCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid verification code length %d", length)
	}

	size := big.NewInt(int64(len(Alphabet)))
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("failed to generate verification code: %w", err)
		}
		code[i] = Alphabet[n.Int64()]
	}
	return string(code), nil
}
