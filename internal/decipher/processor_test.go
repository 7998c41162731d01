package decipher_test

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/nwwm/internal/container"
	"github.com/idelchi/nwwm/internal/container/containertest"
	"github.com/idelchi/nwwm/internal/decipher"
)

type fixture struct {
	dir       string
	input     string
	output    string
	plaintext []byte
	sealed    []byte
}

func newFixture(t *testing.T, size int) fixture {
	t.Helper()

	dir := t.TempDir()
	plaintext := containertest.Plaintext(size)
	sealed := containertest.Seal(t, plaintext, containertest.Secret)

	return fixture{
		dir:       dir,
		input:     containertest.Write(t, dir, "update.upg", sealed),
		output:    filepath.Join(dir, "update.bin"),
		plaintext: plaintext,
		sealed:    sealed,
	}
}

func newProcessor(t *testing.T, opts decipher.Options) *decipher.Processor {
	t.Helper()

	proc, err := decipher.NewProcessor(opts)
	require.NoError(t, err)

	return proc
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path) //nolint:gosec // test paths
	require.NoError(t, err)

	return data
}

func TestRunCommits(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 2*container.DefaultChunkSize+77)
	proc := newProcessor(t, decipher.Options{ConsumeOnSuccess: true})

	res, err := proc.Run(context.Background(), fx.input, fx.output, containertest.Secret)
	require.NoError(t, err)

	assert.Equal(t, decipher.StateCommitted, res.State)
	assert.True(t, res.SourceDeleted)
	assert.Equal(t, int64(len(fx.plaintext)), res.OutputSize)
	assert.Equal(t, container.Digest(sha256.Sum224(fx.plaintext)), res.Digest)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, fx.plaintext, readFile(t, fx.output))
	assert.NoFileExists(t, fx.input)
}

func TestRunKeepsSourceWithoutConsume(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 1000)
	proc := newProcessor(t, decipher.Options{})

	res, err := proc.Run(context.Background(), fx.input, fx.output, "  "+containertest.Secret+"\n")
	require.NoError(t, err)

	assert.Equal(t, decipher.StateCommitted, res.State)
	assert.False(t, res.SourceDeleted)
	assert.Equal(t, fx.sealed, readFile(t, fx.input))
	assert.Equal(t, fx.plaintext, readFile(t, fx.output))
}

func TestRunChunkSizeInvariance(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 3*container.DefaultChunkSize/2+5)

	var want container.Digest

	for i, size := range []int{16, 4096, container.DefaultChunkSize, 1 << 22} {
		output := filepath.Join(fx.dir, "out-"+strings.Repeat("x", i+1))
		proc := newProcessor(t, decipher.Options{ChunkSize: size})

		res, err := proc.Run(context.Background(), fx.input, output, containertest.Secret)
		require.NoError(t, err, "chunk size %d", size)

		assert.Equal(t, fx.plaintext, readFile(t, output), "chunk size %d", size)

		if i == 0 {
			want = res.Digest
		}

		assert.Equal(t, want, res.Digest, "chunk size %d", size)
	}
}

func TestRunReplacesExistingOutput(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 10)
	require.NoError(t, os.WriteFile(fx.output, []byte(strings.Repeat("stale", 100)), 0o600))

	_, err := newProcessor(t, decipher.Options{}).Run(context.Background(), fx.input, fx.output, containertest.Secret)
	require.NoError(t, err)

	assert.Equal(t, fx.plaintext, readFile(t, fx.output))
}

func TestRunBadMagicTouchesNothing(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 100)

	sealed := append([]byte(nil), fx.sealed...)
	copy(sealed, "NWWX")
	require.NoError(t, os.WriteFile(fx.input, sealed, 0o600))
	require.NoError(t, os.WriteFile(fx.output, []byte("previous"), 0o600))

	res, err := newProcessor(t, decipher.Options{ConsumeOnSuccess: true}).
		Run(context.Background(), fx.input, fx.output, containertest.Secret)

	require.ErrorIs(t, err, container.ErrBadMagic)
	assert.Equal(t, decipher.StateFailed, res.State)
	assert.Equal(t, sealed, readFile(t, fx.input))
	assert.Equal(t, []byte("previous"), readFile(t, fx.output))
}

func TestRunInvalidSecretOpensNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	missing := filepath.Join(dir, "does-not-exist.upg")
	output := filepath.Join(dir, "out.bin")

	for _, secret := range []string{containertest.Secret[:47], containertest.Secret + "M"} {
		res, err := newProcessor(t, decipher.Options{}).Run(context.Background(), missing, output, secret)

		require.ErrorIs(t, err, container.ErrInvalidLength)
		assert.Equal(t, decipher.StateFailed, res.State)
		assert.NoFileExists(t, output)
	}

	_, err := newProcessor(t, decipher.Options{}).
		Run(context.Background(), missing, output, "é"+containertest.Secret[1:])
	require.ErrorIs(t, err, container.ErrNonASCII)
}

func TestRunChecksumMismatchRollsBack(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 5000)

	sealed := append([]byte(nil), fx.sealed...)
	// Last hex character of the digest.
	if sealed[59] == '0' {
		sealed[59] = '1'
	} else {
		sealed[59] = '0'
	}

	require.NoError(t, os.WriteFile(fx.input, sealed, 0o600))

	res, err := newProcessor(t, decipher.Options{ConsumeOnSuccess: true}).
		Run(context.Background(), fx.input, fx.output, containertest.Secret)

	require.ErrorIs(t, err, container.ErrChecksumMismatch)
	assert.Equal(t, decipher.StateRolledBack, res.State)
	assert.Equal(t, container.Digest(sha256.Sum224(fx.plaintext)), res.Digest)
	assert.NoFileExists(t, fx.output)
	assert.Equal(t, sealed, readFile(t, fx.input))
}

func TestRunMidStreamFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{
			name:   "truncated body",
			mutate: func(b []byte) []byte { return b[:len(b)-3] },
			want:   container.ErrMisaligned,
		},
		{
			name: "tampered final block",
			mutate: func(b []byte) []byte {
				b[len(b)-container.BlockSize-1] ^= 0xff

				return b
			},
			want: container.ErrInvalidPadding,
		},
		{
			name:   "empty body",
			mutate: func(b []byte) []byte { return b[:container.HeaderSize] },
			want:   container.ErrInvalidPadding,
		},
		{
			name:   "short header",
			mutate: func(b []byte) []byte { return b[:container.HeaderSize-1] },
			want:   container.ErrRead,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fx := newFixture(t, 300)
			broken := tc.mutate(append([]byte(nil), fx.sealed...))
			require.NoError(t, os.WriteFile(fx.input, broken, 0o600))

			res, err := newProcessor(t, decipher.Options{ChunkSize: 64, ConsumeOnSuccess: true}).
				Run(context.Background(), fx.input, fx.output, containertest.Secret)

			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, decipher.StateFailed, res.State)
			assert.Equal(t, res.Error, err)
			assert.NoFileExists(t, fx.output)
			assert.Equal(t, broken, readFile(t, fx.input))

			var cerr *container.Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, fx.input, cerr.Path)
		})
	}
}

func TestRunCanceled(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newProcessor(t, decipher.Options{ConsumeOnSuccess: true}).Run(ctx, fx.input, fx.output, containertest.Secret)

	require.ErrorIs(t, err, container.ErrCanceled)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, decipher.StateFailed, res.State)
	assert.NoFileExists(t, fx.output)
	assert.FileExists(t, fx.input)
}

func TestRunMissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := newProcessor(t, decipher.Options{}).
		Run(context.Background(), filepath.Join(dir, "nope"), filepath.Join(dir, "out"), containertest.Secret)

	require.ErrorIs(t, err, container.ErrOpen)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunPreservesTimestamps(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 64)

	info, err := os.Stat(fx.input)
	require.NoError(t, err)

	_, err = newProcessor(t, decipher.Options{PreserveTimestamps: true}).
		Run(context.Background(), fx.input, fx.output, containertest.Secret)
	require.NoError(t, err)

	out, err := os.Stat(fx.output)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(out.ModTime()))
}

func TestRunLogsStateTransitions(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 100)
	handler := memory.New()
	logger := &log.Logger{Handler: handler, Level: log.DebugLevel}

	_, err := newProcessor(t, decipher.Options{Logger: logger}).
		Run(context.Background(), fx.input, fx.output, containertest.Secret)
	require.NoError(t, err)

	var states []string

	for _, entry := range handler.Entries {
		if state, ok := entry.Fields["state"]; ok {
			states = append(states, state.(string)) //nolint:forcetypeassert // always a string
		}
	}

	assert.Equal(t, []string{
		"header-parsed", "key-derived", "streaming", "finalizing", "verified", "committed",
	}, states)
}

func TestNewProcessorChunkSize(t *testing.T) {
	t.Parallel()

	for _, size := range []int{-16, 1, 15, 17, 160001} {
		_, err := decipher.NewProcessor(decipher.Options{ChunkSize: size})
		assert.Error(t, err, "chunk size %d", size)
	}

	for _, size := range []int{0, 16, 32, container.DefaultChunkSize} {
		_, err := decipher.NewProcessor(decipher.Options{ChunkSize: size})
		assert.NoError(t, err, "chunk size %d", size)
	}
}

func TestStateTerminal(t *testing.T) {
	t.Parallel()

	terminal := map[decipher.State]bool{
		decipher.StateCommitted:  true,
		decipher.StateRolledBack: true,
		decipher.StateFailed:     true,
	}

	for s := decipher.StateInit; s <= decipher.StateFailed; s++ {
		assert.Equal(t, terminal[s], s.Terminal(), s.String())
		assert.NotEqual(t, "unknown", s.String())
	}

	assert.Equal(t, "unknown", decipher.State(42).String())
}

func TestRunRefusesOutputAtSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		output func(t *testing.T, fx fixture) string
	}{
		{
			name:   "valid container",
			mutate: func(b []byte) []byte { return b },
			output: func(_ *testing.T, fx fixture) string { return fx.input },
		},
		{
			name:   "truncated container",
			mutate: func(b []byte) []byte { return b[:len(b)-3] },
			output: func(_ *testing.T, fx fixture) string { return fx.input },
		},
		{
			name:   "unclean path",
			mutate: func(b []byte) []byte { return b },
			output: func(_ *testing.T, fx fixture) string { return fx.dir + string(filepath.Separator) + "./update.upg" },
		},
		{
			name:   "hard link",
			mutate: func(b []byte) []byte { return b },
			output: func(t *testing.T, fx fixture) string {
				t.Helper()

				link := filepath.Join(fx.dir, "link.upg")
				if err := os.Link(fx.input, link); err != nil {
					t.Skipf("hard links unsupported: %v", err)
				}

				return link
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fx := newFixture(t, 500)
			data := tc.mutate(append([]byte(nil), fx.sealed...))
			require.NoError(t, os.WriteFile(fx.input, data, 0o600))

			output := tc.output(t, fx)

			res, err := newProcessor(t, decipher.Options{ConsumeOnSuccess: true}).
				Run(context.Background(), fx.input, output, containertest.Secret)

			require.ErrorIs(t, err, container.ErrSameFile)
			assert.Equal(t, decipher.StateFailed, res.State)
			assert.False(t, res.SourceDeleted)
			assert.Equal(t, data, readFile(t, fx.input))
			assert.Equal(t, data, readFile(t, output))
		})
	}
}

func TestRunExistingOutputNotRemovable(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 100)

	// A non-empty directory cannot be removed with os.Remove.
	require.NoError(t, os.MkdirAll(filepath.Join(fx.output, "keep"), 0o700))

	res, err := newProcessor(t, decipher.Options{ConsumeOnSuccess: true}).
		Run(context.Background(), fx.input, fx.output, containertest.Secret)

	require.ErrorIs(t, err, container.ErrDelete)
	assert.Equal(t, decipher.StateFailed, res.State)
	assert.DirExists(t, filepath.Join(fx.output, "keep"))
	assert.Equal(t, fx.sealed, readFile(t, fx.input))
}

func TestRunOutputNotCreatable(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, 100)
	output := filepath.Join(fx.dir, "missing", "update.bin")

	res, err := newProcessor(t, decipher.Options{ConsumeOnSuccess: true}).
		Run(context.Background(), fx.input, output, containertest.Secret)

	require.ErrorIs(t, err, container.ErrOpen)
	assert.Equal(t, decipher.StateFailed, res.State)
	assert.NoFileExists(t, output)
	assert.Equal(t, fx.sealed, readFile(t, fx.input))
}
