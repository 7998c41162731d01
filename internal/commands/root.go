package commands

import (
	"github.com/spf13/cobra"

	"github.com/idelchi/gogen/pkg/cobraext"
	"github.com/idelchi/nwwm/internal/config"
	"github.com/idelchi/nwwm/internal/container"
	"github.com/idelchi/nwwm/internal/logic"
)

// NewRootCommand creates the root command, which decrypts a single container.
// Flags shared with the subcommands are declared as persistent flags.
func NewRootCommand(cfg *config.Config, version string) *cobra.Command {
	root := cobraext.NewDefaultRootCommand(version)

	root.Use = "nwwm -i <container> -o <output> [flags]"
	root.Short = "Firmware update container decryptor"
	root.Long = `Decrypts NWWM firmware update containers.

A container is a 128-byte header holding the "NWWM" magic and the hex SHA-224
digest of the plaintext, followed by an AES-256-CBC body. The 48-character key
is given with --key, --key-file, NWWM_KEY or typed on the terminal.

The output is kept only when its digest matches the header. The source
container is deleted after a verified decryption unless --keep is given.`
	root.Args = cobra.NoArgs
	root.SilenceErrors = true
	root.PersistentPreRunE = bindEnv(root.PersistentPreRunE)
	root.PreRunE = func(cmd *cobra.Command, args []string) error {
		cfg.BatchMode = false

		return preRun(cfg)(cmd, args)
	}
	root.RunE = func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		if cfg.Show {
			return show(cmd, cfg)
		}

		return logic.Run(cmd.Context(), cfg, streams(cmd))
	}

	root.Flags().StringP("input", "i", "", "Path to the container to decrypt")
	root.Flags().StringP("output", "o", "", "Path to write the decrypted firmware to")

	flags := root.PersistentFlags()

	flags.StringP("key", "k", "", "The 48-character secret (32 key bytes followed by 16 IV bytes)")
	flags.String("key-file", "", "Path to a file holding the 48-character secret")
	flags.Int("chunk-size", container.DefaultChunkSize, "Ciphertext read size in bytes, a multiple of 16")
	flags.Bool("keep", false, "Keep the source container after a verified decryption")
	flags.Bool("preserve-timestamps", false, "Copy the source modification time onto the output")
	flags.BoolP("quiet", "q", false, "Suppress non-error output")
	flags.Bool("verbose", false, "Log every state transition and chunk")
	flags.Bool("no-color", false, "Disable colored output")
	flags.Bool("stats", false, "Print a summary when done")
	flags.BoolP("show", "s", false, "Show the configuration and exit")

	root.AddCommand(NewBatchCommand(cfg), NewInspectCommand())

	return root
}
