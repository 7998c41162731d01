// Package fileutil provides shared file operation helpers.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const ownerReadWrite = 0o600

// Destination is an output file that is either kept or discarded at the end of a run.
type Destination struct {
	File *os.File
	Path string

	closed bool
}

// CreateDestination creates path, truncating any existing file.
func CreateDestination(path string) (*Destination, error) {
	path = filepath.Clean(path)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, ownerReadWrite)
	if err != nil {
		return nil, fmt.Errorf("creating %q: %w", path, err)
	}

	return &Destination{File: file, Path: path}, nil
}

// Close closes the file. Calling it more than once is a no-op.
func (d *Destination) Close() error {
	if d.closed {
		return nil
	}

	d.closed = true

	if err := d.File.Close(); err != nil {
		return fmt.Errorf("closing %q: %w", d.Path, err)
	}

	return nil
}

// Discard closes the file, if still open, and removes it.
func (d *Destination) Discard() error {
	d.Close() //nolint:errcheck,gosec // the file is removed right after

	return RemoveIfExists(d.Path)
}

// RemoveIfExists removes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %q: %w", path, err)
	}

	return nil
}

// FinalizeOutput optionally preserves timestamps and returns the output file size.
func FinalizeOutput(outPath string, preserveTimestamps bool, modTime time.Time) (int64, error) {
	if preserveTimestamps {
		if err := os.Chtimes(outPath, modTime, modTime); err != nil {
			return 0, fmt.Errorf("preserving timestamps: %w", err)
		}
	}

	outInfo, err := os.Stat(outPath)
	if err != nil {
		return 0, fmt.Errorf("stat output %q: %w", outPath, err)
	}

	return outInfo.Size(), nil
}
