package container

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// SecretLength is the number of ASCII characters in a container secret.
	SecretLength = KeySize + IVSize
	// KeySize is the AES-256 key size taken from the front of the secret.
	KeySize = 32
	// IVSize is the CBC initialization vector size taken from the tail of the secret.
	IVSize = 16
)

// KeyMaterial is the AES key and IV for one container.
type KeyMaterial struct {
	Key [KeySize]byte
	IV  [IVSize]byte
}

// DeriveKeyMaterial splits a secret into key and IV.
// The secret is trimmed of surrounding ASCII whitespace and control bytes and must then be exactly
// SecretLength ASCII characters. The bytes are used as-is, without hashing.
func DeriveKeyMaterial(secret string) (KeyMaterial, error) {
	secret = strings.TrimFunc(secret, isControlOrSpace)

	for i := 0; i < len(secret); i++ {
		if secret[i] >= utf8.RuneSelf {
			e := newError(KindNonASCII, "derive key")
			e.Offset = int64(i)
			e.Actual = strconv.Quote(secret[i : i+1])

			return KeyMaterial{}, e
		}
	}

	if len(secret) != SecretLength {
		e := newError(KindInvalidLength, "derive key")
		e.Expected = strconv.Itoa(SecretLength) + " characters"
		e.Actual = strconv.Itoa(len(secret))

		return KeyMaterial{}, e
	}

	var km KeyMaterial

	copy(km.Key[:], secret[:KeySize])
	copy(km.IV[:], secret[KeySize:])

	return km, nil
}

// isControlOrSpace matches the bytes trimmed from a secret: ASCII space and below.
// Unicode spaces such as U+00A0 are kept so they fail the ASCII check.
func isControlOrSpace(r rune) bool {
	return r <= ' '
}

// Wipe zeroes the key material.
func (km *KeyMaterial) Wipe() {
	clear(km.Key[:])
	clear(km.IV[:])
}
