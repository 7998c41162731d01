package container

import (
	"fmt"
	"strings"
)

// Kind classifies a failure of the decryption pipeline.
type Kind int

const (
	// KindOther is an unclassified failure.
	KindOther Kind = iota
	// KindBadMagic means the header does not start with the container magic.
	KindBadMagic
	// KindMalformedDigest means the header digest is not valid hexadecimal.
	KindMalformedDigest
	// KindInvalidLength means the secret is not exactly SecretLength bytes.
	KindInvalidLength
	// KindNonASCII means the secret contains a byte outside the ASCII range.
	KindNonASCII
	// KindCipherInit means the block cipher could not be set up from the key material.
	KindCipherInit
	// KindInvalidPadding means the final block does not carry valid PKCS#7 padding.
	KindInvalidPadding
	// KindMisaligned means the ciphertext length is not a multiple of the block size.
	KindMisaligned
	// KindRead is a failure reading the source, including a short header.
	KindRead
	// KindWrite is a failure writing the destination.
	KindWrite
	// KindOpen is a failure opening or creating a file.
	KindOpen
	// KindClose is a failure closing a file.
	KindClose
	// KindDelete is a failure removing a file.
	KindDelete
	// KindChecksumMismatch means the plaintext digest differs from the header digest.
	KindChecksumMismatch
	// KindCanceled means the run was canceled between chunks.
	KindCanceled
	// KindSameFile means the output path names the source container.
	KindSameFile
)

var kindNames = [...]string{
	KindOther:            "other",
	KindBadMagic:         "bad magic",
	KindMalformedDigest:  "malformed digest",
	KindInvalidLength:    "invalid key length",
	KindNonASCII:         "non-ascii key",
	KindCipherInit:       "cipher init failed",
	KindInvalidPadding:   "invalid padding",
	KindMisaligned:       "misaligned ciphertext",
	KindRead:             "read",
	KindWrite:            "write",
	KindOpen:             "open",
	KindClose:            "close",
	KindDelete:           "delete",
	KindChecksumMismatch: "checksum mismatch",
	KindCanceled:         "canceled",
	KindSameFile:         "output is the source",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}

	return kindNames[k]
}

// Class returns the error family the kind belongs to.
func (k Kind) Class() string {
	switch k {
	case KindBadMagic, KindMalformedDigest:
		return "format"
	case KindInvalidLength, KindNonASCII:
		return "key"
	case KindCipherInit:
		return "cipher"
	case KindInvalidPadding, KindMisaligned:
		return "padding"
	case KindRead, KindWrite, KindOpen, KindClose, KindDelete, KindSameFile:
		return "io"
	case KindChecksumMismatch:
		return "integrity"
	case KindCanceled:
		return "canceled"
	default:
		return "other"
	}
}

// noOffset marks an Error that carries no byte offset.
const noOffset = -1

// Error is the single error type returned by the decryption pipeline.
// Only Kind is mandatory; the remaining fields add diagnostic context.
type Error struct {
	Kind Kind

	// Op names the step that failed, e.g. "read header".
	Op string

	// Path is the file involved, if any.
	Path string

	// Offset is the byte offset the failure refers to, or -1.
	Offset int64

	// Expected and Actual describe a mismatch, if any.
	Expected string
	Actual   string

	// Err is the underlying cause, if any.
	Err error
}

// Sentinels for use with errors.Is. They match any *Error of the same kind.
var (
	ErrBadMagic         = &Error{Kind: KindBadMagic, Offset: noOffset}
	ErrMalformedDigest  = &Error{Kind: KindMalformedDigest, Offset: noOffset}
	ErrInvalidLength    = &Error{Kind: KindInvalidLength, Offset: noOffset}
	ErrNonASCII         = &Error{Kind: KindNonASCII, Offset: noOffset}
	ErrCipherInit       = &Error{Kind: KindCipherInit, Offset: noOffset}
	ErrInvalidPadding   = &Error{Kind: KindInvalidPadding, Offset: noOffset}
	ErrMisaligned       = &Error{Kind: KindMisaligned, Offset: noOffset}
	ErrRead             = &Error{Kind: KindRead, Offset: noOffset}
	ErrWrite            = &Error{Kind: KindWrite, Offset: noOffset}
	ErrOpen             = &Error{Kind: KindOpen, Offset: noOffset}
	ErrClose            = &Error{Kind: KindClose, Offset: noOffset}
	ErrDelete           = &Error{Kind: KindDelete, Offset: noOffset}
	ErrChecksumMismatch = &Error{Kind: KindChecksumMismatch, Offset: noOffset}
	ErrCanceled         = &Error{Kind: KindCanceled, Offset: noOffset}
	ErrSameFile         = &Error{Kind: KindSameFile, Offset: noOffset}
)

func newError(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op, Offset: noOffset}
}

// IOError builds an error of one of the io kinds for path.
func IOError(kind Kind, op, path string, err error) *Error {
	e := newError(kind, op)
	e.Path = path
	e.Err = err

	return e
}

// CanceledError wraps a context error.
func CanceledError(err error) *Error {
	e := newError(KindCanceled, "decrypt body")
	e.Err = err

	return e
}

func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(e.Kind.Class())
	sb.WriteString(": ")
	sb.WriteString(e.Kind.String())

	if e.Op != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Op)
		sb.WriteString(")")
	}

	if e.Path != "" {
		fmt.Fprintf(&sb, " %q", e.Path)
	}

	if e.Offset >= 0 {
		fmt.Fprintf(&sb, " at offset %d", e.Offset)
	}

	if e.Expected != "" || e.Actual != "" {
		fmt.Fprintf(&sb, ": expected %s, got %s", e.Expected, e.Actual)
	}

	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}
