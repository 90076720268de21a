// Package common defines shared constants and sentinel errors used across
// the vault server. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Validation errors.
	ErrEmptyInput    = errors.New("empty input")
	ErrEmptyUserName = errors.New("empty user name")
	ErrEmptyPassword = errors.New("empty password")

	// Account lookup / lifecycle errors.
	ErrUserNameExists   = errors.New("user name already exists")
	ErrUserNameNotFound = errors.New("user name not found")
	ErrUserIDNotFound   = errors.New("user id not found")
	ErrDeviceNotFound   = errors.New("device not found")

	// Cryptographic errors. ErrDecryptionFailed deliberately carries no
	// detail about the failure cause.
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrCorruptStream    = errors.New("corrupt stream")
	ErrNoKeyLoaded      = errors.New("no key loaded")

	// Store errors. ErrStoreUnavailable is transient and safe to retry;
	// ErrInvariantViolation means unique-key corruption and must surface.
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrInvariantViolation = errors.New("invariant violation")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
)
