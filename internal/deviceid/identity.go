// Package deviceid manages per-device signing identities: secp256k1 ECDSA
// keypairs used by companion clients to authenticate device-originated
// requests. Keys are persisted only as password-encrypted exports; the live
// key exists only inside an Identity value.
package deviceid

import (
	"bytes"
	"crypto/aes"
	"crypto/sha256"
	"encoding/base64"

	"github.com/DawPastrator/server/internal/common"
	"github.com/DawPastrator/server/internal/cryptox"
	"github.com/btcsuite/btcd/btcec"
)

const exportSaltSize = 16

// Identity holds an optional secp256k1 keypair. The zero value has no key
// loaded; Generate or Import installs one.
type Identity struct {
	priv *btcec.PrivateKey
	pub  *btcec.PublicKey
}

// New returns an Identity with no key loaded.
func New() *Identity {
	return &Identity{}
}

// HasKey reports whether a keypair has been generated or imported.
func (id *Identity) HasKey() bool {
	return id.priv != nil
}

// Generate creates a fresh secp256k1 keypair, replacing any loaded key.
func (id *Identity) Generate() error {
	priv, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return err
	}
	id.priv = priv
	id.pub = priv.PubKey()
	return nil
}

// Export serializes the private key into a password-encrypted container:
// a random salt followed by the AES-256-CBC envelope (PBKDF2-SHA256,
// ExportIterations) over a double-SHA-256 integrity head plus the raw key.
func (id *Identity) Export(masterPassword string) ([]byte, error) {
	if !id.HasKey() {
		return nil, common.ErrNoKeyLoaded
	}

	serialized := id.priv.Serialize()
	defer common.WipeByteArray(serialized)

	raw := append(cryptox.DoubleSha256(serialized), serialized...)
	defer common.WipeByteArray(raw)

	salt := common.GenerateRandByteArray(exportSaltSize)
	key, err := cryptox.DeriveKeyRawSalt(masterPassword, salt, cryptox.ExportIterations)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	encrypted, err := cryptox.EncryptBytes(key, raw)
	if err != nil {
		return nil, err
	}
	return append(salt, encrypted...), nil
}

// Import loads a keypair from an Export container. It reports success
// rather than returning an error; on any cryptographic or format failure
// the identity state is left unchanged.
func (id *Identity) Import(container []byte, masterPassword string) bool {
	if len(container) < exportSaltSize+2*aes.BlockSize {
		return false
	}

	salt := container[:exportSaltSize]
	key, err := cryptox.DeriveKeyRawSalt(masterPassword, salt, cryptox.ExportIterations)
	if err != nil {
		return false
	}
	defer common.WipeByteArray(key)

	raw, err := cryptox.DecryptBytes(key, container[exportSaltSize:])
	if err != nil {
		return false
	}
	defer common.WipeByteArray(raw)

	if len(raw) != sha256.Size+btcec.PrivKeyBytesLen {
		return false
	}
	head, serialized := raw[:sha256.Size], raw[sha256.Size:]
	if !bytes.Equal(head, cryptox.DoubleSha256(serialized)) {
		return false
	}

	id.priv, id.pub = btcec.PrivKeyFromBytes(btcec.S256(), serialized)
	return true
}

// Sign hashes text with SHA-256 and signs the digest, returning the DER
// signature base64-encoded.
func (id *Identity) Sign(text string) (string, error) {
	if !id.HasKey() {
		return "", common.ErrNoKeyLoaded
	}
	digest := sha256.Sum256([]byte(text))
	sig, err := id.priv.Sign(digest[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig.Serialize()), nil
}

// Verify checks a base64 DER signature over text against the loaded public
// key. It returns false, never an error, on a structurally invalid
// signature string.
func (id *Identity) Verify(text, signatureBase64 string) bool {
	if id.pub == nil {
		return false
	}
	der, err := base64.StdEncoding.DecodeString(signatureBase64)
	if err != nil {
		return false
	}
	sig, err := btcec.ParseDERSignature(der, btcec.S256())
	if err != nil {
		return false
	}
	digest := sha256.Sum256([]byte(text))
	return sig.Verify(digest[:], id.pub)
}

// PublicKeyBase64 exports the compressed public key for device
// registration.
func (id *Identity) PublicKeyBase64() (string, error) {
	if id.pub == nil {
		return "", common.ErrNoKeyLoaded
	}
	return base64.StdEncoding.EncodeToString(id.pub.SerializeCompressed()), nil
}

// VerifyWithPublicKey checks a signature against a registered device public
// key, as exported by PublicKeyBase64. Used server-side where only the
// public half is known.
func VerifyWithPublicKey(text, signatureBase64, publicKeyBase64 string) bool {
	pubBytes, err := base64.StdEncoding.DecodeString(publicKeyBase64)
	if err != nil {
		return false
	}
	pub, err := btcec.ParsePubKey(pubBytes, btcec.S256())
	if err != nil {
		return false
	}
	der, err := base64.StdEncoding.DecodeString(signatureBase64)
	if err != nil {
		return false
	}
	sig, err := btcec.ParseDERSignature(der, btcec.S256())
	if err != nil {
		return false
	}
	digest := sha256.Sum256([]byte(text))
	return sig.Verify(digest[:], pub)
}
