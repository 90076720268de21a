// Package cryptox implements the cryptographic envelope of the vault:
// hashing and key-derivation primitives, the AES-CBC cipher with the
// disposable-first-block design, and gzip helpers for blobs.
package cryptox

import (
	"crypto/sha256"
	"crypto/sha512"

	"github.com/DawPastrator/server/internal/common"
)

// Sha256Bytes returns the SHA-256 digest of input.
func Sha256Bytes(input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, common.ErrEmptyInput
	}
	sum := sha256.Sum256(input)
	return sum[:], nil
}

// Sha256String returns the SHA-256 digest of the UTF-8 bytes of input.
func Sha256String(input string) ([]byte, error) {
	return Sha256Bytes([]byte(input))
}

// Sha512Bytes returns the SHA-512 digest of input.
func Sha512Bytes(input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, common.ErrEmptyInput
	}
	sum := sha512.Sum512(input)
	return sum[:], nil
}

// Sha512String returns the SHA-512 digest of the UTF-8 bytes of input.
func Sha512String(input string) ([]byte, error) {
	return Sha512Bytes([]byte(input))
}

// DoubleSha256 hashes input twice with SHA-256. Used as an integrity head
// on exported private keys.
func DoubleSha256(input []byte) []byte {
	first := sha256.Sum256(input)
	second := sha256.Sum256(first[:])
	return second[:]
}
