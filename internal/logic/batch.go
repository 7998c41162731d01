package logic

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/idelchi/nwwm/internal/config"
	"github.com/idelchi/nwwm/internal/decipher"
	"github.com/idelchi/nwwm/internal/filter"
)

// ErrNoContainers is returned when a batch resolves to no work.
var ErrNoContainers = errors.New("no containers found")

// RunBatch decrypts every container named by the manifest or found under the batch paths.
//
//nolint:cyclop // parallel processing pipeline with printer goroutine
func RunBatch(ctx context.Context, cfg *config.Config, streams Streams) error {
	start := time.Now()

	jobs, scanned, err := collectJobs(&cfg.Batch)
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		return ErrNoContainers
	}

	proc, secret, err := prepare(cfg, streams)
	if err != nil {
		return err
	}

	results := make(chan decipher.Result, len(jobs))

	group := errgroup.Group{}
	group.SetLimit(cfg.Batch.Parallel)

	printed := make(chan struct{})

	var processed, errored int

	var totalSize int64

	go func() {
		defer close(printed)

		for res := range results {
			if res.Error != nil {
				errored++
			} else {
				processed++

				totalSize += res.OutputSize
			}

			report(cfg, streams, res)
		}
	}()

	for _, job := range jobs {
		group.Go(func() error {
			res, err := proc.Run(ctx, job.Input, job.Output, secret)

			results <- res

			return err
		})
	}

	err = group.Wait()

	close(results)

	<-printed

	if cfg.Stats {
		printStats(streams.Err, scanned, processed, errored, totalSize, time.Since(start))
	}

	if err != nil {
		return fmt.Errorf("%d of %d containers failed: %w", errored, len(jobs), err)
	}

	return nil
}

// collectJobs merges manifest entries with the resolved batch paths and
// rejects plans in which two jobs would share a path.
func collectJobs(batch *config.Batch) ([]filter.Job, int, error) {
	var jobs []filter.Job

	if batch.Manifest != "" {
		manifest, err := filter.LoadManifest(batch.Manifest)
		if err != nil {
			return nil, 0, fmt.Errorf("loading manifest: %w", err)
		}

		jobs = append(jobs, manifest...)
	}

	scanned := len(jobs)

	if len(batch.Paths) > 0 {
		files, total, err := filter.Resolve(batch.Paths, batch.Include)
		if err != nil {
			return nil, 0, fmt.Errorf("resolving paths: %w", err)
		}

		scanned += total

		for _, file := range files {
			jobs = append(jobs, filter.Job{Input: file, Output: outputPath(file, batch)})
		}
	}

	if err := checkConflicts(jobs); err != nil {
		return nil, 0, err
	}

	return jobs, scanned, nil
}

// outputPath swaps the extension of filename for the batch suffix.
func outputPath(filename string, batch *config.Batch) string {
	dir := batch.OutputDir
	if dir == "" {
		dir = filepath.Dir(filename)
	}

	base := filepath.Base(filename)

	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+batch.Suffix)
}

// checkConflicts fails when any path appears twice across all inputs and outputs.
func checkConflicts(jobs []filter.Job) error {
	seen := make(map[string]string, 2*len(jobs))

	claim := func(path, role string) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolving %q: %w", path, err)
		}

		if prev, ok := seen[abs]; ok {
			return fmt.Errorf("%q is used as %s and as %s", path, prev, role)
		}

		seen[abs] = role

		return nil
	}

	for _, job := range jobs {
		if err := claim(job.Input, "input"); err != nil {
			return err
		}

		if err := claim(job.Output, "output"); err != nil {
			return err
		}
	}

	return nil
}
