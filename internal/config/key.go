package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Secret returns the secret from the key string or the key file.
// It returns an empty string when neither is configured.
func (k Key) Secret() (string, error) {
	switch {
	case k.String != "":
		return k.String, nil
	case k.File != "":
		data, err := os.ReadFile(filepath.Clean(k.File))
		if err != nil {
			return "", fmt.Errorf("reading key file: %w", err)
		}

		return strings.TrimSpace(string(data)), nil
	default:
		return "", nil
	}
}
