package models

import (
	"encoding/binary"

	"github.com/DawPastrator/server/internal/common"
)

// The device registry travels inside vault blobs as a length-prefixed
// binary list: a uvarint pair count, then for each pair a uvarint-prefixed
// device ID and a uvarint-prefixed public key. The layout is part of the
// storage contract and must round-trip exactly.

// EncodeDevices serializes entries into the length-prefixed wire form.
func EncodeDevices(entries []DeviceEntry) []byte {
	out := binary.AppendUvarint(nil, uint64(len(entries)))
	for _, e := range entries {
		out = binary.AppendUvarint(out, uint64(len(e.DeviceID)))
		out = append(out, e.DeviceID...)
		out = binary.AppendUvarint(out, uint64(len(e.PublicKey)))
		out = append(out, e.PublicKey...)
	}
	return out
}

// DecodeDevices parses the length-prefixed form produced by EncodeDevices.
// Any truncation or malformed prefix yields ErrCorruptStream.
func DecodeDevices(data []byte) ([]DeviceEntry, error) {
	count, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, common.ErrCorruptStream
	}
	data = data[n:]

	// Count comes off the wire; size the slice lazily so a corrupt prefix
	// cannot force a huge allocation.
	entries := []DeviceEntry{}
	for i := uint64(0); i < count; i++ {
		deviceID, rest, err := readString(data)
		if err != nil {
			return nil, err
		}
		publicKey, rest, err := readString(rest)
		if err != nil {
			return nil, err
		}
		entries = append(entries, DeviceEntry{DeviceID: deviceID, PublicKey: publicKey})
		data = rest
	}
	if len(data) != 0 {
		return nil, common.ErrCorruptStream
	}
	return entries, nil
}

func readString(data []byte) (string, []byte, error) {
	size, n := binary.Uvarint(data)
	if n <= 0 || uint64(len(data)-n) < size {
		return "", nil, common.ErrCorruptStream
	}
	return string(data[n : n+int(size)]), data[n+int(size):], nil
}
