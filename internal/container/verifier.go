package container

import (
	"bytes"
	"crypto/sha256"
	"hash"
)

// Verifier accumulates a SHA-224 digest over plaintext and checks it against
// the digest carried in the header. Feed it with Write in production order.
type Verifier struct {
	expected Digest
	hash     hash.Hash

	sum    Digest
	err    error
	closed bool
}

// NewVerifier returns a verifier expecting the given digest.
func NewVerifier(expected Digest) *Verifier {
	return &Verifier{
		expected: expected,
		hash:     sha256.New224(),
	}
}

// Write implements io.Writer. It fails only once Verify has been called.
func (v *Verifier) Write(p []byte) (int, error) {
	if v.closed {
		return 0, newError(KindOther, "write after verify")
	}

	return v.hash.Write(p)
}

// Verify finalizes the digest and compares it with the expected one.
// The digest is computed once; later calls return the same verdict.
func (v *Verifier) Verify() (Digest, error) {
	if v.closed {
		return v.sum, v.err
	}

	v.closed = true
	copy(v.sum[:], v.hash.Sum(nil))

	if !bytes.Equal(v.sum[:], v.expected[:]) {
		e := newError(KindChecksumMismatch, "verify digest")
		e.Expected = v.expected.String()
		e.Actual = v.sum.String()
		v.err = e
	}

	return v.sum, v.err
}
