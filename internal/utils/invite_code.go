package utils

import (
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// GenerateInviteCode creates a random 8-character base58 invite code.
// Base58 drops the ambiguous 0/O and I/l characters.
func GenerateInviteCode() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}

	code := base58.Encode(b)
	if len(code) > 8 {
		code = code[:8]
	}
	return code, nil
}
