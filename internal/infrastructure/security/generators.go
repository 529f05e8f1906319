// Package security provides secure random generation utilities
package security

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// LeadCodeAlphabet omits glyphs that are easy to misread: 0 O 1 I L.
const LeadCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// LeadCodeLength is the number of characters in a lead code.
const LeadCodeLength = 6

// GenerateULID generates a new ULID string.
func GenerateULID() string {
	return ulid.Make().String()
}

// GenerateVisitorID returns an opaque, stable-for-life visitor identifier.
func GenerateVisitorID() string {
	return "visitor_" + uuid.NewString()
}

// GenerateBrowserKey mints the key that namespaces one browser's state.
func GenerateBrowserKey() string {
	return uuid.NewString()
}

// GenerateLeadCode returns a short human-shareable code. It falls back to a
// ULID-derived code if the system random source fails.
func GenerateLeadCode() string {
	code, err := generateLeadCode(LeadCodeLength)
	if err != nil {
		return fallbackLeadCode()
	}
	return code
}

func generateLeadCode(length int) (string, error) {
	max := big.NewInt(int64(len(LeadCodeAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate lead code: %w", err)
		}
		out[i] = LeadCodeAlphabet[n.Int64()]
	}
	return string(out), nil
}

func fallbackLeadCode() string {
	entropy := ulid.Make().Entropy()
	out := make([]byte, LeadCodeLength)
	for i := range out {
		out[i] = LeadCodeAlphabet[int(entropy[i])%len(LeadCodeAlphabet)]
	}
	return string(out)
}

// IsLeadCode reports whether s is well-formed.
func IsLeadCode(s string) bool {
	if len(s) != LeadCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !containsByte(LeadCodeAlphabet, s[i]) {
			return false
		}
	}
	return true
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}
