package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"unicode/utf8"

	"github.com/DawPastrator/server/internal/common"
)

// The vault cipher is AES-256-CBC with PKCS#7 padding and one deliberate
// twist: the first plaintext block is random filler and the IV is neither
// stored nor transmitted.
//
// In CBC mode the IV only affects the first decrypted block
// (P1 = D(C1) xor IV; Pi = D(Ci) xor C(i-1) for i > 1). Making block one
// disposable means decryption may run under any freshly generated IV and
// still recover everything from block two onward, trading one wasted
// cipher block per message for never persisting an IV.

// addPKCSPadding pads in to a whole number of AES blocks per PKCS#7.
func addPKCSPadding(in []byte) []byte {
	padding := aes.BlockSize - len(in)%aes.BlockSize
	out := make([]byte, len(in), len(in)+padding)
	copy(out, in)
	for i := 0; i < padding; i++ {
		out = append(out, byte(padding))
	}
	return out
}

// removePKCSPadding strips and validates PKCS#7 padding.
func removePKCSPadding(in []byte) ([]byte, error) {
	if len(in) == 0 {
		return nil, common.ErrDecryptionFailed
	}
	padding := int(in[len(in)-1])
	if padding == 0 || padding > aes.BlockSize || padding > len(in) {
		return nil, common.ErrDecryptionFailed
	}
	for _, b := range in[len(in)-padding:] {
		if int(b) != padding {
			return nil, common.ErrDecryptionFailed
		}
	}
	return in[:len(in)-padding], nil
}

// EncryptBytes encrypts plaintext under key with a random filler block
// prepended. key must be KeyLength bytes. A fresh random IV is used and
// discarded.
func EncryptBytes(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, aes.BlockSize+len(plaintext))
	buf = append(buf, common.GenerateRandByteArray(aes.BlockSize)...)
	buf = append(buf, plaintext...)
	padded := addPKCSPadding(buf)

	iv := common.GenerateRandByteArray(aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// DecryptBytes reverses EncryptBytes. It decrypts under a freshly generated
// IV, which corrupts only the filler block, then strips padding and the
// filler. All failures map to ErrDecryptionFailed without detail.
func DecryptBytes(key, ciphertext []byte) ([]byte, error) {
	if len(ciphertext)%aes.BlockSize != 0 || len(ciphertext)/aes.BlockSize < 2 {
		return nil, common.ErrDecryptionFailed
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv := common.GenerateRandByteArray(aes.BlockSize)
	decrypted := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(decrypted, ciphertext)

	unpadded, err := removePKCSPadding(decrypted)
	if err != nil {
		return nil, common.ErrDecryptionFailed
	}
	if len(unpadded) < aes.BlockSize {
		return nil, common.ErrDecryptionFailed
	}
	return unpadded[aes.BlockSize:], nil
}

// Encrypt protects plaintext under a key derived from the user name and
// master password.
func Encrypt(plaintext, userName, masterPassword string) ([]byte, error) {
	key, err := DeriveKey(masterPassword, userName, DefaultIterations)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)
	return EncryptBytes(key, []byte(plaintext))
}

// Decrypt re-derives the key from the user name and master password and
// recovers the plaintext string. Invalid UTF-8 after unpadding is treated
// as a decryption failure, since a wrong key yields noise.
func Decrypt(ciphertext []byte, userName, masterPassword string) (string, error) {
	key, err := DeriveKey(masterPassword, userName, DefaultIterations)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)

	plaintext, err := DecryptBytes(key, ciphertext)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		return "", common.ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// EncryptToBase64 encrypts plaintext and returns the result base64-encoded,
// optionally gzip-compressing the ciphertext for storage.
func EncryptToBase64(plaintext, userName, masterPassword string, compress bool) (string, error) {
	encrypted, err := Encrypt(plaintext, userName, masterPassword)
	if err != nil {
		return "", err
	}
	if compress {
		if encrypted, err = Compress(encrypted); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// DecryptFromBase64 reverses EncryptToBase64.
func DecryptFromBase64(encoded, userName, masterPassword string, decompress bool) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", common.ErrDecryptionFailed
	}
	if decompress {
		if data, err = Decompress(data); err != nil {
			return "", err
		}
	}
	return Decrypt(data, userName, masterPassword)
}
