package decipher

import (
	"time"

	"github.com/idelchi/nwwm/internal/container"
)

// Result represents the outcome of decrypting a single container.
type Result struct {
	// Input file path
	Input string

	// Output file path
	Output string

	// Terminal state of the run
	State State

	// Digest of the produced plaintext, set once the body was fully decrypted
	Digest container.Digest

	// Number of ciphertext chunks read
	Chunks int

	// Output file size in bytes
	OutputSize int64

	// Whether the source container was deleted
	SourceDeleted bool

	// Wall time of the run
	Duration time.Duration

	// Any error that occurred during processing
	Error error
}
