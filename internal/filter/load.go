package filter

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Job is one input/output pair of a batch manifest.
type Job struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// LoadManifest reads a JSONC file holding an array of jobs.
func LoadManifest(path string) ([]Job, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from user-supplied config
	if err != nil {
		return nil, fmt.Errorf("reading manifest %q: %w", path, err)
	}

	clean := jsonc.ToJSONInPlace(data)

	var jobs []Job
	if err := json.Unmarshal(clean, &jobs); err != nil {
		return nil, fmt.Errorf("parsing manifest %q: %w", path, err)
	}

	for i, job := range jobs {
		if job.Input == "" || job.Output == "" {
			return nil, fmt.Errorf("manifest %q: job %d needs both input and output", path, i)
		}
	}

	return jobs, nil
}
