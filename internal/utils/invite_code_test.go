package utils

import (
	"strings"
	"testing"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

func TestGenerateInviteCode(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		code, err := GenerateInviteCode()
		if err != nil {
			t.Fatalf("GenerateInviteCode failed: %v", err)
		}

		if len(code) == 0 || len(code) > 8 {
			t.Errorf("unexpected code length %d (%q)", len(code), code)
		}

		for _, r := range code {
			if !strings.ContainsRune(base58Alphabet, r) {
				t.Errorf("code %q contains non-base58 character %q", code, r)
			}
		}

		seen[code] = true
	}

	// 100 random 6-byte codes colliding would point at a broken generator.
	if len(seen) < 95 {
		t.Errorf("too many duplicate codes: %d unique out of 100", len(seen))
	}
}
