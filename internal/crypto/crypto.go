package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	// KeyLength is the length of the encryption key in bytes (256 bits)
	KeyLength = 32
	// NonceLength is the length of the GCM nonce in bytes (96 bits)
	NonceLength = 12
)

var (
	// ErrInvalidKeyLength is returned when the key is not the correct length
	ErrInvalidKeyLength = errors.New("invalid key length: must be 32 bytes")
	// ErrEmptyPlaintext is returned when asked to encrypt nothing
	ErrEmptyPlaintext = errors.New("refusing to encrypt empty value")
	// ErrDecryptionFailed is returned when decryption fails (wrong key or corrupted data)
	ErrDecryptionFailed = errors.New("decryption failed: wrong key or corrupted data")
)

// GenerateKey generates a random 256-bit encryption key
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// Cipher encrypts and decrypts field values with a single AES-256-GCM
// key. Ciphertexts are self-contained blobs (nonce prepended) so a
// column holds one opaque value. A fresh random nonce is used per call,
// so equal plaintexts never produce equal ciphertexts.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a Cipher from 32 bytes of key material
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt encrypts a field value, returning a nonce-prefixed blob.
// Empty input is rejected rather than producing a valid ciphertext of
// nothing.
func (c *Cipher) Encrypt(plaintext string) ([]byte, error) {
	if plaintext == "" {
		return nil, ErrEmptyPlaintext
	}
	nonce := make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Decrypt reverses Encrypt. A blob that is too short, was tampered
// with, or was produced under a different key yields ErrDecryptionFailed;
// callers must treat that as a data-integrity error, not a not-found.
func (c *Cipher) Decrypt(blob []byte) (string, error) {
	if len(blob) <= NonceLength {
		return "", ErrDecryptionFailed
	}
	nonce, ciphertext := blob[:NonceLength], blob[NonceLength:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}
