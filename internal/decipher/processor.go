package decipher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"

	"github.com/idelchi/nwwm/internal/container"
	"github.com/idelchi/nwwm/internal/fileutil"
)

// Options configures a Processor.
type Options struct {
	// ChunkSize is the ciphertext read size. It must be a positive multiple of
	// the AES block size; zero selects container.DefaultChunkSize.
	ChunkSize int

	// ConsumeOnSuccess deletes the source container once its output is verified.
	ConsumeOnSuccess bool

	// PreserveTimestamps copies the source modification time to the output.
	PreserveTimestamps bool

	// Logger receives state transitions and per-chunk progress. Nil discards.
	Logger log.Interface
}

// Processor decrypts NWWM containers and commits or rolls back the output
// depending on the digest verdict. A Processor may run several containers
// concurrently as long as no two runs share a source or an output path.
type Processor struct {
	opts    Options
	log     log.Interface
	buffers *bufferPool

	// Filesystem steps, replaced in tests to inject failures.
	create   func(path string) (*fileutil.Destination, error)
	remove   func(path string) error
	finalize func(path string, preserveTimestamps bool, modTime time.Time) (int64, error)
}

// NewProcessor validates opts and returns a Processor.
func NewProcessor(opts Options) (*Processor, error) {
	if opts.ChunkSize == 0 {
		opts.ChunkSize = container.DefaultChunkSize
	}

	if opts.ChunkSize < 0 || opts.ChunkSize%container.BlockSize != 0 {
		return nil, fmt.Errorf("chunk size %d is not a positive multiple of %d", opts.ChunkSize, container.BlockSize)
	}

	logger := opts.Logger
	if logger == nil {
		logger = &log.Logger{Handler: discard.New(), Level: log.InfoLevel}
	}

	return &Processor{
		opts:     opts,
		log:      logger,
		buffers:  newBufferPool(opts.ChunkSize),
		create:   fileutil.CreateDestination,
		remove:   os.Remove,
		finalize: fileutil.FinalizeOutput,
	}, nil
}

// Run decrypts input into output using secret.
//
// The secret is validated before any file is opened. Header and key failures
// leave both paths untouched, as does an output naming the source itself.
// Failures after the output was created remove it and keep the source. A digest
// mismatch removes the output. On success the source is deleted when
// ConsumeOnSuccess is set; if that deletion fails the verified output is kept.
// The returned error is also stored in Result.Error.
func (p *Processor) Run(ctx context.Context, input, output, secret string) (Result, error) {
	start := time.Now()

	r := &run{
		p:   p,
		res: Result{Input: input, Output: output, State: StateInit},
		log: p.log.WithFields(log.Fields{"input": input, "output": output}),
	}

	err := r.execute(ctx, secret)

	r.res.Duration = time.Since(start)

	if err != nil {
		if r.res.State != StateRolledBack {
			r.transition(StateFailed)
		}

		r.res.Error = err
		r.log.WithError(err).Debug("run failed")

		return r.res, err
	}

	return r.res, nil
}

// run is the mutable state of a single Run call.
type run struct {
	p   *Processor
	res Result
	log *log.Entry
}

func (r *run) transition(state State) {
	r.res.State = state
	r.log.WithField("state", state.String()).Debug("state")
}

//nolint:funlen,cyclop // linear pipeline with cleanup on each exit
func (r *run) execute(ctx context.Context, secret string) error {
	km, err := container.DeriveKeyMaterial(secret)
	if err != nil {
		return err
	}

	defer km.Wipe()

	input, output := r.res.Input, r.res.Output

	src, err := os.Open(filepath.Clean(input))
	if err != nil {
		return container.IOError(container.KindOpen, "open source", input, err)
	}

	source := &closer{file: src, path: input, op: "close source"}
	defer source.Close() //nolint:errcheck // closed explicitly on the success path

	info, err := src.Stat()
	if err != nil {
		return container.IOError(container.KindOpen, "stat source", input, err)
	}

	if err := checkDistinct(info, input, output); err != nil {
		return err
	}

	hdr, err := container.ReadHeader(src)
	if err != nil {
		return withPath(err, input)
	}

	r.transition(StateHeaderParsed)

	dec, err := container.NewDecryptor(km.Key[:], km.IV[:])
	if err != nil {
		return err
	}

	r.transition(StateKeyDerived)

	if err := fileutil.RemoveIfExists(output); err != nil {
		return container.IOError(container.KindDelete, "remove existing output", output, err)
	}

	dst, err := r.p.create(output)
	if err != nil {
		return container.IOError(container.KindOpen, "create output", output, err)
	}

	verifier := container.NewVerifier(hdr.Digest)

	if err := r.stream(ctx, src, dst.File, dec, verifier); err != nil {
		source.Close() //nolint:errcheck,gosec // the stream error is what gets reported

		return r.discard(dst, err)
	}

	if err := dst.Close(); err != nil {
		return r.discard(dst, container.IOError(container.KindClose, "close output", output, err))
	}

	if err := source.Close(); err != nil {
		return r.discard(dst, err)
	}

	sum, err := verifier.Verify()
	r.res.Digest = sum

	if err != nil {
		r.transition(StateMismatched)

		if derr := dst.Discard(); derr != nil {
			return errors.Join(err, container.IOError(container.KindDelete, "remove output", output, derr))
		}

		r.transition(StateRolledBack)

		return err
	}

	r.transition(StateVerified)

	size, err := r.p.finalize(dst.Path, r.p.opts.PreserveTimestamps, info.ModTime())
	if err != nil {
		return r.discard(dst, container.IOError(container.KindWrite, "finalize output", output, err))
	}

	r.res.OutputSize = size

	if r.p.opts.ConsumeOnSuccess {
		if err := r.p.remove(input); err != nil {
			return container.IOError(container.KindDelete, "consume source", input, err)
		}

		r.res.SourceDeleted = true
	}

	r.transition(StateCommitted)

	return nil
}

// stream drives the chunk loop. Every chunk of plaintext reaches the verifier
// and the output before the next chunk is read.
func (r *run) stream(ctx context.Context, src io.Reader, dst io.Writer, dec *container.Decryptor, verifier *container.Verifier) error {
	r.transition(StateStreaming)

	emit := func(plain []byte) error {
		if len(plain) == 0 {
			return nil
		}

		if _, err := verifier.Write(plain); err != nil {
			return err
		}

		if _, err := dst.Write(plain); err != nil {
			return container.IOError(container.KindWrite, "write output", r.res.Output, err)
		}

		return nil
	}

	bufp := r.p.buffers.get()
	defer r.p.buffers.put(bufp)

	buf := *bufp

	for {
		if err := ctx.Err(); err != nil {
			return container.CanceledError(err)
		}

		n, err := io.ReadFull(src, buf)
		if n > 0 {
			r.res.Chunks++
		}

		switch {
		case err == nil:
			if err := emit(dec.Update(buf[:n])); err != nil {
				return err
			}

			r.log.WithFields(log.Fields{"chunk": r.res.Chunks, "bytes": n}).Debug("decrypted chunk")
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			r.transition(StateFinalizing)

			plain, err := dec.Final(buf[:n])
			if err != nil {
				return withPath(err, r.res.Input)
			}

			return emit(plain)
		default:
			return container.IOError(container.KindRead, "read body", r.res.Input, err)
		}
	}
}

// discard removes a partial output and returns cause, joined with any removal failure.
func (r *run) discard(dst *fileutil.Destination, cause error) error {
	if err := dst.Discard(); err != nil {
		r.log.WithError(err).Warn("removing partial output")

		return errors.Join(cause, container.IOError(container.KindDelete, "remove partial output", dst.Path, err))
	}

	return cause
}

// closer closes a file at most once and reports a KindClose error.
type closer struct {
	file   *os.File
	path   string
	op     string
	closed bool
}

func (c *closer) Close() error {
	if c.closed {
		return nil
	}

	c.closed = true

	if err := c.file.Close(); err != nil {
		return container.IOError(container.KindClose, c.op, c.path, err)
	}

	return nil
}

// checkDistinct fails when output already names the file opened as the source,
// whether by the same path or through a link.
func checkDistinct(source os.FileInfo, input, output string) error {
	same := filepath.Clean(input) == filepath.Clean(output)

	if !same {
		if info, err := os.Stat(output); err == nil {
			same = os.SameFile(source, info)
		}
	}

	if !same {
		return nil
	}

	e := container.IOError(container.KindSameFile, "check output", output, nil)
	e.Expected = "a path other than " + strconv.Quote(input)
	e.Actual = strconv.Quote(output)

	return e
}

// withPath attaches path to a *container.Error that carries none.
func withPath(err error, path string) error {
	var cerr *container.Error
	if errors.As(err, &cerr) && cerr.Path == "" {
		cerr.Path = path
	}

	return err
}
