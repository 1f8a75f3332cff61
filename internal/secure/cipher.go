// Package secure provides the field-level cipher for PII columns. Contact
// email and phone values are stored encrypted; the profile repository
// decrypts them on read so the rest of the pipeline only ever sees plaintext
// in memory.
package secure

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// FieldCipher encrypts and decrypts individual string fields using
// ChaCha20-Poly1305 with a random nonce prefixed to the ciphertext. Values
// are base64-encoded for storage in text columns.
type FieldCipher struct {
	key []byte
}

// NewFieldCipher creates a FieldCipher from a hex-encoded 32-byte key.
func NewFieldCipher(keyHex string) (*FieldCipher, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("secure: key is not valid hex: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("secure: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &FieldCipher{key: key}, nil
}

// EncryptString encrypts a plaintext field value. Empty input encrypts to
// empty output so optional columns round-trip cleanly.
func (c *FieldCipher) EncryptString(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("secure: cipher init failed: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secure: nonce generation failed: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString decrypts a stored field value. Empty input decrypts to empty
// output.
func (c *FieldCipher) DecryptString(stored string) (string, error) {
	if stored == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("secure: stored value is not valid base64: %w", err)
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("secure: cipher init failed: %w", err)
	}

	if len(raw) < aead.NonceSize() {
		return "", fmt.Errorf("secure: stored value shorter than nonce")
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("secure: decryption failed: %w", err)
	}

	return string(plaintext), nil
}
