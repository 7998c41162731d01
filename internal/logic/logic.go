// Package logic implements the core business logic for decrypting containers.
package logic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/idelchi/nwwm/internal/config"
	"github.com/idelchi/nwwm/internal/container"
	"github.com/idelchi/nwwm/internal/decipher"
)

// Exit codes returned by ExitCode.
const (
	ExitOK      = 0
	ExitUsage   = 1
	ExitFailure = 2
)

// Streams bundles where a run reads the secret from and writes its output to.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Run decrypts the single container described by cfg.
func Run(ctx context.Context, cfg *config.Config, streams Streams) error {
	start := time.Now()

	proc, secret, err := prepare(cfg, streams)
	if err != nil {
		return err
	}

	res, err := proc.Run(ctx, cfg.Single.Input, cfg.Single.Output, secret)

	report(cfg, streams, res)

	if cfg.Stats {
		var processed, errored int
		if err != nil {
			errored = 1
		} else {
			processed = 1
		}

		printStats(streams.Err, 1, processed, errored, res.OutputSize, time.Since(start))
	}

	if err != nil {
		return fmt.Errorf("decrypting %q: %w", cfg.Single.Input, err)
	}

	return nil
}

// ExitCode maps an error returned by a command to the process exit status.
// Pipeline failures exit with ExitFailure, everything else counts as a usage error.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cerr *container.Error
	if errors.As(err, &cerr) {
		return ExitFailure
	}

	return ExitUsage
}

// prepare resolves the secret and builds the processor shared by all runs.
func prepare(cfg *config.Config, streams Streams) (*decipher.Processor, string, error) {
	secret, err := resolveSecret(cfg.Key, streams)
	if err != nil {
		return nil, "", err
	}

	proc, err := decipher.NewProcessor(decipher.Options{
		ChunkSize:          cfg.ChunkSize,
		ConsumeOnSuccess:   !cfg.Keep,
		PreserveTimestamps: cfg.PreserveTimestamps,
		Logger:             newLogger(cfg, streams.Err),
	})
	if err != nil {
		return nil, "", fmt.Errorf("creating processor: %w", err)
	}

	return proc, secret, nil
}

func newLogger(cfg *config.Config, w io.Writer) log.Interface {
	level := log.InfoLevel

	switch {
	case cfg.Verbose:
		level = log.DebugLevel
	case cfg.Quiet:
		level = log.WarnLevel
	}

	return &log.Logger{Handler: cli.New(w), Level: level}
}

// report prints the outcome of one run.
func report(cfg *config.Config, streams Streams, res decipher.Result) {
	if res.Error != nil {
		fmt.Fprintf(streams.Err, "%s %q: %v\n", color.RedString("Error processing"), res.Input, res.Error)

		if res.State == decipher.StateRolledBack {
			fmt.Fprintf(streams.Err, "Removed %q\n", res.Output)
		}

		return
	}

	if cfg.Quiet {
		return
	}

	fmt.Fprintf(streams.Out, "%s %q -> %q\n", color.GreenString("Decrypted"), res.Input, res.Output)

	if res.SourceDeleted {
		fmt.Fprintf(streams.Out, "Deleted %q\n", res.Input)
	}
}

func printStats(w io.Writer, scanned, processed, errored int, totalSize int64, duration time.Duration) {
	fmt.Fprintf(w, "\nStats\n")
	fmt.Fprintf(w, "  Scanned:   %d\n", scanned)
	fmt.Fprintf(w, "  Processed: %d\n", processed)
	fmt.Fprintf(w, "  Errors:    %d\n", errored)
	//nolint:gosec // totalSize is always non-negative (sum of file sizes)
	fmt.Fprintf(w, "  Size:      %s\n", humanize.IBytes(uint64(max(0, totalSize))))
	fmt.Fprintf(w, "  Duration:  %s\n", duration.Round(time.Millisecond))
}
