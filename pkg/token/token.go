package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

const (
	// DefaultLength is the default token length in bytes.
	DefaultLength = 32

	// PairingCodePrefix marks simulated pairing codes.
	PairingCodePrefix = "phc_"
)

// Generate generates a cryptographically secure random token of
// DefaultLength bytes.
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength generates a token with the specified byte length.
func GenerateWithLength(length int) (string, error) {
	b, err := GenerateBytes(length)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateWithPrefix generates a token of length random bytes and prepends
// prefix.
func GenerateWithPrefix(prefix string, length int) (string, error) {
	body, err := GenerateWithLength(length)
	if err != nil {
		return "", err
	}
	return prefix + body, nil
}

// GenerateBytes generates random bytes.
func GenerateBytes(length int) ([]byte, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Equal compares two secrets in constant time.
//
// Both inputs are hashed first so the comparison does not leak their lengths.
func Equal(provided, expected string) bool {
	a := sha256.Sum256([]byte(provided))
	b := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// Mask returns s with everything but the first keep characters replaced,
// for logging.
func Mask(s string, keep int) string {
	if len(s) <= keep {
		return strings.Repeat("*", len(s))
	}
	return s[:keep] + "****"
}
