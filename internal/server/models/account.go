// Package models holds the persistent record types of the vault server.
package models

import "time"

// Account is one user's record: a unique name, the derived password
// verifier (base64, never the raw password), and the encrypted vault blob.
// VaultBlob is nil until the client stores its first collection.
type Account struct {
	ID        int64
	UserName  string
	Verifier  string
	VaultBlob []byte
	CreatedAt time.Time
}

// DeviceEntry registers one companion device: a per-account unique ID and
// the device's base64 compressed secp256k1 public key. Device entries are
// owned by their account and removed with it.
type DeviceEntry struct {
	DeviceID  string
	PublicKey string
}
