// Package cryptox implements the symmetric encryption applied to message
// payloads before they are persisted or put on the wire.
//
// The scheme is AES-256-GCM with a fresh random 12-byte nonce per message.
// Ciphertext travels and is stored as nonce||sealed, so no extra bookkeeping
// is needed to decrypt. Key material is supplied once at process start and
// held for the process lifetime; there is no in-process rotation.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"cipherchat/internal/common"
)

// KeySize is the required key length: AES-256.
const KeySize = 32

// Service encrypts and decrypts payloads with a fixed server-held key.
// It is stateless after construction and safe for concurrent use.
type Service struct {
	aead cipher.AEAD
}

// NewService builds a Service from a raw 32-byte key.
func NewService(key []byte) (*Service, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be exactly %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	return &Service{aead: aead}, nil
}

// NewServiceFromBase64 decodes a base64 key, as carried in bootstrap
// configuration, and builds a Service from it.
func NewServiceFromBase64(encoded string) (*Service, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid base64: %w", err)
	}
	return NewService(key)
}

// GenerateKey returns a new random 32-byte key.
func GenerateKey() []byte {
	return common.GenerateRandByteArray(KeySize)
}

// Encrypt seals plaintext and returns nonce||ciphertext.
func (s *Service) Encrypt(plaintext []byte) []byte {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		panic(err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil)
}

// Decrypt opens a nonce||ciphertext blob produced by Encrypt. Any tampering
// or key mismatch yields common.ErrDecryptFailed; it never returns wrong
// plaintext silently.
func (s *Service) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < s.aead.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext shorter than nonce", common.ErrDecryptFailed)
	}

	nonce, ciphertext := blob[:s.aead.NonceSize()], blob[s.aead.NonceSize():]

	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptFailed, err)
	}
	return plaintext, nil
}

// EncryptString encrypts s and base64-encodes the result for text fields.
func (s *Service) EncryptString(plaintext string) string {
	return base64.StdEncoding.EncodeToString(s.Encrypt([]byte(plaintext)))
}

// DecryptString reverses EncryptString.
func (s *Service) DecryptString(encoded string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64: %v", common.ErrDecryptFailed, err)
	}

	plaintext, err := s.Decrypt(blob)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
