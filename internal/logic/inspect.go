package logic

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/idelchi/nwwm/internal/container"
)

// Inspect prints the header of each container without decrypting it.
// Every path is inspected; the failures are joined.
func Inspect(w io.Writer, paths []string) error {
	var errs []error

	for _, path := range paths {
		if err := inspect(w, path); err != nil {
			fmt.Fprintf(w, "%s %q: %v\n", color.RedString("Error inspecting"), path, err)

			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func inspect(w io.Writer, path string) error {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return container.IOError(container.KindOpen, "open source", path, err)
	}

	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return container.IOError(container.KindOpen, "stat source", path, err)
	}

	hdr, err := container.ReadHeader(file)
	if err != nil {
		return err
	}

	body := info.Size() - container.HeaderSize

	aligned := color.GreenString("yes")
	if body == 0 || body%container.BlockSize != 0 {
		aligned = color.YellowString("no")
	}

	reserved := "zero"
	if !bytes.Equal(hdr.Reserved[:], make([]byte, len(hdr.Reserved))) {
		reserved = "non-zero"
	}

	fmt.Fprintf(w, "%s\n", color.CyanString(path))
	fmt.Fprintf(w, "  Magic:    %s\n", container.Magic)
	fmt.Fprintf(w, "  Digest:   %s\n", hdr.Digest)
	//nolint:gosec // body is non-negative once a full header was read
	fmt.Fprintf(w, "  Body:     %s (%d bytes)\n", humanize.IBytes(uint64(body)), body)
	fmt.Fprintf(w, "  Aligned:  %s\n", aligned)
	fmt.Fprintf(w, "  Reserved: %s\n", reserved)

	return nil
}
