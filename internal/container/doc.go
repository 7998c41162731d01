// Package container implements the NWWM firmware-update container format:
// a 128-byte header holding the magic and a hex SHA-224 plaintext digest,
// followed by an AES-256-CBC body with PKCS#7 padding.
// The key and IV are the raw bytes of a 48-character ASCII secret.
package container
