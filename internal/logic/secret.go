package logic

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/idelchi/nwwm/internal/config"
)

// ErrNoKey is returned when no secret was configured and none can be prompted for.
var ErrNoKey = errors.New("no key given: use --key, --key-file or NWWM_KEY")

// resolveSecret returns the configured secret, prompting on the terminal when none is set.
func resolveSecret(key config.Key, streams Streams) (string, error) {
	secret, err := key.Secret()
	if err != nil {
		return "", err
	}

	if secret != "" {
		return secret, nil
	}

	in, ok := streams.In.(*os.File)
	if !ok || !term.IsTerminal(int(in.Fd())) { //nolint:gosec // file descriptors fit in int
		return "", ErrNoKey
	}

	fmt.Fprint(streams.Err, "Key: ")

	raw, err := term.ReadPassword(int(in.Fd())) //nolint:gosec // file descriptors fit in int

	fmt.Fprintln(streams.Err)

	if err != nil {
		return "", fmt.Errorf("reading key from terminal: %w", err)
	}

	return string(raw), nil
}
