package container

import (
	"crypto/aes"
	"crypto/cipher"
	"strconv"
)

// DefaultChunkSize is the reference read size for the ciphertext body.
const DefaultChunkSize = 160000

// BlockSize is the AES block size that non-final chunks must be a multiple of.
const BlockSize = aes.BlockSize

// Decryptor is a streaming AES-256-CBC decrypter with PKCS#7 padding removal.
// Chunks may be of any size; the CBC chaining value and any ciphertext that
// cannot yet be decrypted are carried between calls. The last complete block
// is always held back until Final, since it holds the padding.
type Decryptor struct {
	mode cipher.BlockMode

	// pending is ciphertext received but not yet decrypted.
	pending []byte

	// out is reused for plaintext between calls.
	out []byte

	total int64
	done  bool
}

// NewDecryptor creates a decryptor for the given AES-256 key and IV.
func NewDecryptor(key, iv []byte) (*Decryptor, error) {
	if len(key) != KeySize {
		e := newError(KindCipherInit, "init cipher")
		e.Expected = strconv.Itoa(KeySize) + " byte key"
		e.Actual = strconv.Itoa(len(key))

		return nil, e
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		e := newError(KindCipherInit, "init cipher")
		e.Err = err

		return nil, e
	}

	if len(iv) != block.BlockSize() {
		e := newError(KindCipherInit, "init cipher")
		e.Expected = strconv.Itoa(block.BlockSize()) + " byte IV"
		e.Actual = strconv.Itoa(len(iv))

		return nil, e
	}

	return &Decryptor{
		mode:    cipher.NewCBCDecrypter(block, iv),
		pending: make([]byte, 0, 2*BlockSize),
	}, nil
}

// Update decrypts a non-final chunk and returns the plaintext that is ready.
// The returned slice is only valid until the next call.
func (d *Decryptor) Update(src []byte) []byte {
	d.total += int64(len(src))
	d.pending = append(d.pending, src...)

	keep := len(d.pending) % BlockSize
	if keep == 0 {
		keep = min(BlockSize, len(d.pending))
	}

	n := len(d.pending) - keep
	if n == 0 {
		return nil
	}

	out := d.buffer(n)
	d.mode.CryptBlocks(out, d.pending[:n])

	copy(d.pending, d.pending[n:])
	d.pending = d.pending[:keep]

	return out
}

// Final decrypts the last chunk, validates alignment and padding, and returns
// the remaining plaintext with the padding removed.
// The returned slice is only valid until the next call.
func (d *Decryptor) Final(src []byte) ([]byte, error) {
	if d.done {
		return nil, newError(KindOther, "finalize after final")
	}

	d.done = true
	d.total += int64(len(src))
	d.pending = append(d.pending, src...)

	if d.total%BlockSize != 0 {
		e := newError(KindMisaligned, "decrypt body")
		e.Offset = HeaderSize + d.total
		e.Expected = "multiple of " + strconv.Itoa(BlockSize) + " bytes"
		e.Actual = strconv.FormatInt(d.total, 10)

		return nil, e
	}

	out := d.buffer(len(d.pending))
	d.mode.CryptBlocks(out, d.pending)
	d.pending = d.pending[:0]

	return pkcs7Unpad(out)
}

// Total reports how many ciphertext bytes have been consumed.
func (d *Decryptor) Total() int64 {
	return d.total
}

func (d *Decryptor) buffer(n int) []byte {
	if cap(d.out) < n {
		d.out = make([]byte, n)
	}

	return d.out[:n]
}
