// Package filter selects container files for batch decryption.
package filter

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/idelchi/nwwm/internal/container"
)

// Filter selects walked files by glob patterns matched against the whole
// slash-separated path, so `*` also crosses directories.
// Empty includes means "match all".
type Filter struct {
	includes []glob.Glob
}

// NewFilter compiles include patterns into a reusable filter.
func NewFilter(includes []string) (*Filter, error) {
	flt := &Filter{includes: make([]glob.Glob, 0, len(includes))}

	for _, pattern := range includes {
		g, err := glob.Compile(strings.TrimPrefix(pattern, "./"))
		if err != nil {
			return nil, fmt.Errorf("compiling include pattern %q: %w", pattern, err)
		}

		flt.includes = append(flt.includes, g)
	}

	return flt, nil
}

// Match reports whether the path should be included.
func (f *Filter) Match(path string) bool {
	if len(f.includes) == 0 {
		return true
	}

	path = filepath.ToSlash(filepath.Clean(path))

	for _, g := range f.includes {
		if g.Match(path) {
			return true
		}
	}

	return false
}

// Resolve takes positional args (files/directories) and include patterns.
// Files are added directly, bypassing filtering. Directories are walked and
// keep files that match the filter and start with the container magic.
// Returns matched files and total candidates scanned.
func Resolve(args, includes []string) (files []string, scanned int, err error) {
	flt, err := NewFilter(includes)
	if err != nil {
		return nil, 0, err
	}

	seen := make(map[string]struct{})

	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}

		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, arg := range args {
		arg = filepath.Clean(arg)

		info, err := os.Stat(arg)
		if err != nil {
			return nil, 0, fmt.Errorf("stat %q: %w", arg, err)
		}

		if !info.IsDir() {
			scanned++

			add(arg)

			continue
		}

		walked, total, err := walkDir(arg, flt)
		if err != nil {
			return nil, 0, err
		}

		scanned += total

		for _, path := range walked {
			add(path)
		}
	}

	return files, scanned, nil
}

// walkDir walks root recursively, returning container files that pass the filter.
func walkDir(root string, flt *Filter) (files []string, total int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.Type().IsRegular() {
			return nil
		}

		total++

		if !flt.Match(path) {
			return nil
		}

		ok, err := sniff(path)
		if err != nil {
			return err
		}

		if ok {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("walking %q: %w", root, err)
	}

	return files, total, nil
}

func sniff(path string) (bool, error) {
	file, err := os.Open(path) //nolint:gosec // path comes from walking a user-supplied directory
	if err != nil {
		return false, fmt.Errorf("opening %q: %w", path, err)
	}
	defer file.Close()

	return container.Sniff(file)
}
