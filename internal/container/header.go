package container

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	// Magic identifies an update container.
	Magic = "NWWM"
	// HeaderSize is the fixed header length; the ciphertext body starts right after it.
	HeaderSize = 128
	// DigestSize is the length of the SHA-224 plaintext digest.
	DigestSize = sha256.Size224

	digestOffset   = len(Magic)
	digestHexLen   = 2 * DigestSize
	reservedOffset = digestOffset + digestHexLen
	reservedSize   = HeaderSize - reservedOffset
)

// Digest is a SHA-224 digest of the plaintext.
type Digest [DigestSize]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Header is the parsed fixed-size container header.
type Header struct {
	Digest Digest

	// Reserved holds bytes 60-127. They are carried but never interpreted.
	Reserved [reservedSize]byte
}

// ReadHeader reads and parses exactly HeaderSize bytes from r.
// A short read is reported as KindRead, not as a format error.
func ReadHeader(r io.Reader) (Header, error) {
	buf := make([]byte, HeaderSize)

	n, err := io.ReadFull(r, buf)
	if err != nil {
		e := newError(KindRead, "read header")
		e.Err = err

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			e.Expected = strconv.Itoa(HeaderSize) + " bytes"
			e.Actual = strconv.Itoa(n)
			e.Err = nil
		}

		return Header{}, e
	}

	return ParseHeader(buf)
}

// ParseHeader parses the first HeaderSize bytes of buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		e := newError(KindRead, "parse header")
		e.Expected = strconv.Itoa(HeaderSize) + " bytes"
		e.Actual = strconv.Itoa(len(buf))

		return Header{}, e
	}

	if !bytes.Equal(buf[:digestOffset], []byte(Magic)) {
		e := newError(KindBadMagic, "parse header")
		e.Offset = 0
		e.Expected = strconv.Quote(Magic)
		e.Actual = strconv.Quote(string(buf[:digestOffset]))

		return Header{}, e
	}

	var hdr Header

	raw := buf[digestOffset:reservedOffset]

	if i := firstNonHex(raw); i >= 0 {
		e := newError(KindMalformedDigest, "parse header")
		e.Offset = int64(digestOffset + i)
		e.Expected = "hex digit"
		e.Actual = strconv.QuoteRune(rune(raw[i]))

		return Header{}, e
	}

	if _, err := hex.Decode(hdr.Digest[:], raw); err != nil {
		e := newError(KindMalformedDigest, "parse header")
		e.Offset = int64(digestOffset)
		e.Err = err

		return Header{}, e
	}

	copy(hdr.Reserved[:], buf[reservedOffset:HeaderSize])

	return hdr, nil
}

// MarshalBinary encodes the header into its HeaderSize-byte form.
func (h Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)

	copy(buf, Magic)
	hex.Encode(buf[digestOffset:reservedOffset], h.Digest[:])
	copy(buf[reservedOffset:], h.Reserved[:])

	return buf, nil
}

// Sniff reports whether r starts with the container magic.
// It consumes up to len(Magic) bytes from r.
func Sniff(r io.Reader) (bool, error) {
	buf := make([]byte, len(Magic))

	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}

		return false, fmt.Errorf("sniffing magic: %w", err)
	}

	return string(buf) == Magic, nil
}

func firstNonHex(b []byte) int {
	for i, c := range b {
		switch {
		case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		default:
			return i
		}
	}

	return -1
}
