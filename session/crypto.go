package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32

var (
	// ErrInvalidKeyLength is an exported constant or variable used by the session security core.
	ErrInvalidKeyLength = errors.New("encryption key must be 32 bytes")
	// ErrDecryptionFailed is an exported constant or variable used by the session security core.
	ErrDecryptionFailed = errors.New("session payload authentication failed")
)

// Cipher seals and opens session record payloads with AES-256-GCM.
// Every payload written to the store passes through Seal; nothing
// plaintext is ever handed to Redis.
//
//	Docs: docs/session.md
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a [Cipher] from a raw 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != keySize {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Cipher{aead: aead}, nil
}

// NewCipherFromSecret derives the AES key from an arbitrary secret via
// HKDF-SHA256, so callers can hand in a passphrase-style secret
// instead of raw key bytes.
func NewCipherFromSecret(secret []byte) (*Cipher, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty encryption secret")
	}

	key := make([]byte, keySize)
	kdf := hkdf.New(sha256.New, secret, nil, []byte("sessionguard/record"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}

	return NewCipher(key)
}

// Seal encrypts a plaintext payload. The random nonce is prepended to
// the ciphertext.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a payload produced by [Seal]. Truncated or tampered
// payloads return [ErrDecryptionFailed]; callers treat that the same
// as a corrupt record.
func (c *Cipher) Open(data []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize+c.aead.Overhead() {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
