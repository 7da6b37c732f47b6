// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal           = errors.New("internal error")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	ErrNotAuthenticated     = errors.New("not authenticated")

	// Session lifecycle errors.
	ErrSessionClosed = errors.New("session closed")

	// Crypto errors (ciphertext tampered or wrong key).
	ErrDecryptFailed = errors.New("decryption failed")

	// Auth token errors.
	ErrInvalidToken = errors.New("invalid token")
)
