// Package crypto seals channel and integration credentials before they
// reach the database.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrNoKey is returned when a sealer is constructed without a key.
var ErrNoKey = errors.New("crypto: encryption key is not configured")

// Sealer encrypts and decrypts short secret strings.
type Sealer interface {
	Seal(value string) (string, error)
	Open(sealed string) (string, error)
}

// AESGCMSealer seals values with AES-GCM. Safe for concurrent use.
type AESGCMSealer struct {
	aead cipher.AEAD
}

// NewAESGCMSealer builds a sealer from a raw AES key
// (16/24/32 bytes).
func NewAESGCMSealer(key []byte) (*AESGCMSealer, error) {
	if len(key) == 0 {
		return nil, ErrNoKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	return &AESGCMSealer{aead: aead}, nil
}

// NewAESGCMSealerFromHex builds a sealer from a hex-encoded key, the
// form the key takes in configuration.
func NewAESGCMSealerFromHex(hexKey string) (*AESGCMSealer, error) {
	if hexKey == "" {
		return nil, ErrNoKey
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: decode key: %w", err)
	}
	return NewAESGCMSealer(key)
}

// Seal encrypts one plaintext value and returns a base64-encoded payload.
func (s *AESGCMSealer) Seal(value string) (string, error) {
	if s == nil || s.aead == nil {
		return "", ErrNoKey
	}

	// AES-GCM requires a unique nonce per encryption under the same key.
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypto: read nonce: %w", err)
	}

	ciphertext := s.aead.Seal(nil, nonce, []byte(value), nil)
	// Persisted as nonce || ciphertext in raw base64.
	payload := append(nonce, ciphertext...)
	return base64.RawStdEncoding.EncodeToString(payload), nil
}

// Open decrypts one previously sealed value.
func (s *AESGCMSealer) Open(sealed string) (string, error) {
	if s == nil || s.aead == nil {
		return "", ErrNoKey
	}

	payload, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("crypto: decode sealed value: %w", err)
	}

	nonceSize := s.aead.NonceSize()
	if len(payload) < nonceSize {
		return "", errors.New("crypto: sealed value is too short")
	}
	nonce := payload[:nonceSize]
	ciphertext := payload[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("crypto: decrypt sealed value: %w", err)
	}
	return string(plaintext), nil
}

// NoopSealer passes values through unchanged. Used in development when
// no encryption key is configured; production config requires a key.
type NoopSealer struct{}

// Seal returns the value unchanged.
func (NoopSealer) Seal(value string) (string, error) { return value, nil }

// Open returns the value unchanged.
func (NoopSealer) Open(sealed string) (string, error) { return sealed, nil }
