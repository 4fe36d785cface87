package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// ErrCiphertextTooShort is returned when the input cannot hold a nonce.
var ErrCiphertextTooShort = errors.New("adaptive: ciphertext too short")

// Cipher provides authenticated encryption.
//
// Encrypt output is nonce || ciphertext || tag.
type Cipher interface {
	// Type returns the cipher type.
	Type() CipherType

	// Encrypt encrypts plaintext bound to additionalData.
	Encrypt(plaintext, additionalData []byte) ([]byte, error)

	// Decrypt reverses Encrypt. It fails if either input was altered.
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)

	// NonceSize returns the nonce size in bytes.
	NonceSize() int

	// Overhead returns the authentication tag size in bytes.
	Overhead() int
}

// New creates a cipher with the given key, selecting the algorithm from the
// host architecture.
func New(key []byte) (Cipher, error) {
	if hasAESNI() {
		return NewAESGCM(key)
	}
	return NewChaCha20(key)
}

// NewWithType creates a cipher of the specified type.
func NewWithType(key []byte, cipherType CipherType) (Cipher, error) {
	switch cipherType {
	case CipherAESGCM:
		return NewAESGCM(key)
	case CipherChaCha20:
		return NewChaCha20(key)
	default:
		return nil, fmt.Errorf("adaptive: unknown cipher type: %s", cipherType)
	}
}

// NewAESGCM creates an AES-GCM cipher.
//
// Key must be 16, 24, or 32 bytes for AES-128, AES-192, or AES-256.
func NewAESGCM(key []byte) (Cipher, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, errors.New("adaptive: invalid key size for AES-GCM: must be 16, 24, or 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &aeadCipher{typ: CipherAESGCM, aead: aead}, nil
}

// NewChaCha20 creates a ChaCha20-Poly1305 cipher.
//
// Key must be exactly 32 bytes.
func NewChaCha20(key []byte) (Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.New("adaptive: invalid key size for ChaCha20-Poly1305: must be 32 bytes")
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &aeadCipher{typ: CipherChaCha20, aead: aead}, nil
}

// hasAESNI reports whether Go's crypto/aes is hardware accelerated on this
// architecture.
func hasAESNI() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return true
	default:
		return false
	}
}

type aeadCipher struct {
	typ  CipherType
	aead cipher.AEAD
}

func (c *aeadCipher) Type() CipherType { return c.typ }

func (c *aeadCipher) NonceSize() int { return c.aead.NonceSize() }

func (c *aeadCipher) Overhead() int { return c.aead.Overhead() }

func (c *aeadCipher) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (c *aeadCipher) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(ciphertext) < n {
		return nil, ErrCiphertextTooShort
	}
	return c.aead.Open(nil, ciphertext[:n], ciphertext[n:], additionalData)
}
