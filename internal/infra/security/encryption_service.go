// File: internal/infra/security/encryption_service.go
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var ErrCiphertext = errors.New("malformed ciphertext")

// EncryptionService seals customer data stored at rest with AES-GCM.
// Each value is bound to a record id through the additional data, so a
// ciphertext copied onto another row fails to open.
type EncryptionService struct {
	gcm cipher.AEAD
}

// NewEncryptionService accepts a raw 16/24/32 byte key or its standard
// base64 encoding.
func NewEncryptionService(key string) (*EncryptionService, error) {
	k := []byte(key)
	if !validKeyLen(len(k)) {
		decoded, err := base64.StdEncoding.DecodeString(key)
		if err != nil || !validKeyLen(len(decoded)) {
			return nil, fmt.Errorf("encryption key must be 16, 24 or 32 bytes (raw or base64); got %d", len(k))
		}
		k = decoded
	}
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &EncryptionService{gcm: gcm}, nil
}

func validKeyLen(n int) bool { return n == 16 || n == 24 || n == 32 }

// Seal returns base64(nonce || ciphertext).
func (e *EncryptionService) Seal(plaintext []byte, recordID string) (string, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}
	ct := e.gcm.Seal(nonce, nonce, plaintext, []byte(recordID))
	return base64.StdEncoding.EncodeToString(ct), nil
}

// Open reverses Seal for the same recordID.
func (e *EncryptionService) Open(sealed, recordID string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	ns := e.gcm.NonceSize()
	if len(data) < ns {
		return nil, ErrCiphertext
	}
	pt, err := e.gcm.Open(nil, data[:ns], data[ns:], []byte(recordID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	return pt, nil
}
