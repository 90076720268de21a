package cryptox

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/DawPastrator/server/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 iteration count for vault keys and
	// password verifiers. Changing it invalidates every stored ciphertext
	// and verifier.
	DefaultIterations = 10000

	// ExportIterations is the iteration count for encrypted private-key
	// exports.
	ExportIterations = 1000

	// KeyLength is the derived key size in bytes (AES-256).
	KeyLength = 32
)

// DeriveKey stretches password into KeyLength bytes of key material with
// PBKDF2-HMAC-SHA256. The salt string is never fed in raw: its SHA-256
// digest is used, matching the verifier derivation.
//
// The function is fully deterministic. Encryption and decryption re-derive
// the key independently, so any drift here silently produces garbage on
// decrypt.
func DeriveKey(password, salt string, iterations int) ([]byte, error) {
	if password == "" || salt == "" {
		return nil, common.ErrEmptyInput
	}
	hashedSalt, err := Sha256String(salt)
	if err != nil {
		return nil, err
	}
	return pbkdf2.Key([]byte(password), hashedSalt, iterations, KeyLength, sha256.New), nil
}

// DeriveKeyRawSalt is DeriveKey for callers that already hold salt bytes,
// such as the private-key export container which stores a random salt.
// The salt is used as-is, without the SHA-256 pre-hash.
func DeriveKeyRawSalt(password string, salt []byte, iterations int) ([]byte, error) {
	if password == "" || len(salt) == 0 {
		return nil, common.ErrEmptyInput
	}
	return pbkdf2.Key([]byte(password), salt, iterations, KeyLength, sha256.New), nil
}

// HashPassword derives the password verifier stored in an account record:
// the same PBKDF2 stretch as DeriveKey, base64-encoded. The account's user
// name serves as the salt, so verifiers survive server reconfiguration.
func HashPassword(password, salt string) (string, error) {
	key, err := DeriveKey(password, salt, DefaultIterations)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
