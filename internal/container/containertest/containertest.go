// Package containertest builds NWWM containers for tests.
package containertest

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/idelchi/nwwm/internal/container"
)

// Secret is a valid 48-character secret.
const Secret = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKL"

// Seal encrypts plaintext under the key material derived from secret and
// prepends a header with the correct digest.
func Seal(tb testing.TB, plaintext []byte, secret string) []byte {
	tb.Helper()

	km, err := container.DeriveKeyMaterial(secret)
	if err != nil {
		tb.Fatalf("deriving key material: %v", err)
	}

	return SealWith(tb, plaintext, km, sha256.Sum224(plaintext))
}

// SealWith is Seal with explicit key material and header digest.
func SealWith(tb testing.TB, plaintext []byte, km container.KeyMaterial, digest container.Digest) []byte {
	tb.Helper()

	padding := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := append(bytes.Clone(plaintext), bytes.Repeat([]byte{byte(padding)}, padding)...)

	return SealRaw(tb, padded, km, digest)
}

// SealRaw encrypts an already padded, block-aligned body without adding padding.
// It lets tests build containers whose padding is deliberately wrong.
func SealRaw(tb testing.TB, padded []byte, km container.KeyMaterial, digest container.Digest) []byte {
	tb.Helper()

	if len(padded)%aes.BlockSize != 0 {
		tb.Fatalf("body of %d bytes is not block aligned", len(padded))
	}

	block, err := aes.NewCipher(km.Key[:])
	if err != nil {
		tb.Fatalf("creating cipher: %v", err)
	}

	body := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, km.IV[:]).CryptBlocks(body, padded)

	header, err := container.Header{Digest: digest}.MarshalBinary()
	if err != nil {
		tb.Fatalf("encoding header: %v", err)
	}

	return append(header, body...)
}

// Write writes data to name inside dir and returns the full path.
func Write(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		tb.Fatalf("writing %s: %v", path, err)
	}

	return path
}

// Plaintext returns n bytes of deterministic non-repeating test data.
func Plaintext(n int) []byte {
	data := make([]byte, n)

	var x uint32 = 2463534242

	for i := range data {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		data[i] = byte(x)
	}

	return data
}
