package cryptox

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/DawPastrator/server/internal/common"
)

// Compress gzips input. Applied outside the cipher: compress-then-encrypt
// for storage, decrypt-then-decompress on retrieval.
func Compress(input []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(input); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. A malformed stream yields ErrCorruptStream.
func Decompress(input []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, common.ErrCorruptStream
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, common.ErrCorruptStream
	}
	return out, nil
}
