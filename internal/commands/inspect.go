package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/idelchi/nwwm/internal/logic"
)

// NewInspectCommand creates a new cobra command that prints container headers.
func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "inspect [flags] containers...",
		Aliases: []string{"info"},
		Short:   "Print container headers without decrypting",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
				color.NoColor = true
			}

			return logic.Inspect(cmd.OutOrStdout(), args)
		},
	}
}
