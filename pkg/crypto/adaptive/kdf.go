package adaptive

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the length of derived keys.
	KeySize = 32

	// SaltSize is the length of salts generated by NewSalt.
	SaltSize = 16

	// MinPassphraseLength is the shortest passphrase DeriveKey accepts
	// through NewFromPassphrase.
	MinPassphraseLength = 8

	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

var (
	// ErrPassphraseTooShort is returned for passphrases under MinPassphraseLength.
	ErrPassphraseTooShort = errors.New("adaptive: passphrase too short (minimum 8 characters)")

	// ErrKeyTooShort is returned when a master key is shorter than 16 bytes.
	ErrKeyTooShort = errors.New("adaptive: key too short (minimum 16 bytes)")
)

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("adaptive: generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey stretches a passphrase into a KeySize key with Argon2id.
// The same passphrase and salt always produce the same key.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, argon2Time, argon2Memory, argon2Threads, KeySize)
}

// DeriveSubkey derives a purpose-bound key from a master key using HKDF-SHA256.
func DeriveSubkey(masterKey []byte, info string, length int) ([]byte, error) {
	if len(masterKey) < 16 {
		return nil, ErrKeyTooShort
	}

	reader := hkdf.New(sha256.New, masterKey, nil, []byte(info))
	key := make([]byte, length)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("adaptive: derive subkey: %w", err)
	}
	return key, nil
}

// NewFromPassphrase derives a key for purpose from passphrase and salt and
// returns a cipher using it.
func NewFromPassphrase(passphrase, salt []byte, purpose string) (Cipher, error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, ErrPassphraseTooShort
	}
	if len(salt) == 0 {
		return nil, errors.New("adaptive: salt is required")
	}

	master := DeriveKey(passphrase, salt)
	key, err := DeriveSubkey(master, purpose, KeySize)
	if err != nil {
		return nil, err
	}
	return New(key)
}
