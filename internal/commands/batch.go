package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/idelchi/nwwm/internal/config"
	"github.com/idelchi/nwwm/internal/logic"
)

// NewBatchCommand creates a new cobra command for the batch subcommand.
func NewBatchCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [flags] [paths...]",
		Short: "Decrypt many containers in parallel",
		Long: `Decrypts every container given as a file, found under a directory, or listed
in a JSONC manifest of {"input": ..., "output": ...} objects.

Files found by walking a directory must match --include (when given) and start
with the container magic. Outputs are named after the input with its extension
replaced by --suffix, next to the input or under --output-dir.`,
		Aliases: []string{"b"},
		Args:    cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.BatchMode = true
			cfg.Batch.Paths = nil

			if len(args) > 0 {
				cfg.Batch.Paths = args
			}

			return preRun(cfg)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			if cfg.Show {
				return show(cmd, cfg)
			}

			return logic.RunBatch(cmd.Context(), cfg, streams(cmd))
		},
	}

	cmd.Flags().String("manifest", "", "Path to a JSONC manifest of input/output pairs")
	cmd.Flags().StringSlice("include", nil, "Glob patterns a walked file must match (repeatable)")
	cmd.Flags().String("output-dir", "", "Directory to write outputs to, defaults to next to each input")
	cmd.Flags().String("suffix", ".bin", "Extension given to outputs")
	cmd.Flags().IntP("parallel", "j", runtime.NumCPU(), "Number of parallel workers, defaults to number of CPUs")

	return cmd
}
