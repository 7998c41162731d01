// Package commands provides the command-line interface for the nwwm tool.
//
// It implements commands for:
//   - decrypting a single container (the root command)
//   - decrypting many containers in parallel
//   - inspecting container headers
//
// The package handles command-line parsing, configuration validation,
// and environment variable binding through cobra and viper.
package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idelchi/gogen/pkg/cobraext"
	"github.com/idelchi/nwwm/internal/config"
	"github.com/idelchi/nwwm/internal/logic"
)

// envPrefix namespaces the environment variables, e.g. NWWM_KEY_FILE for --key-file.
const envPrefix = "NWWM"

// bindEnv wraps a PersistentPreRunE so that the flags of the running command
// are bound into viper, with NWWM_* environment variables as fallback.
func bindEnv(inherited func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if inherited != nil {
			if err := inherited(cmd, args); err != nil {
				return err
			}
		}

		viper.SetEnvPrefix(envPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		viper.AutomaticEnv()

		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("binding flags: %w", err)
		}

		return nil
	}
}

// preRun returns a PreRunE handler that fills cfg from viper and validates it.
func preRun(cfg *config.Config) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, _ []string) error {
		if err := viper.Unmarshal(cfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}

		if cfg.NoColor {
			color.NoColor = true
		}

		if cfg.Show {
			return nil
		}

		return cobraext.Validate(cfg, cfg)
	}
}

// show prints the resolved configuration.
func show(cmd *cobra.Command, cfg *config.Config) error {
	out, err := cfg.Display()
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), out)

	return nil
}

func streams(cmd *cobra.Command) logic.Streams {
	return logic.Streams{
		In:  cmd.InOrStdin(),
		Out: cmd.OutOrStdout(),
		Err: cmd.ErrOrStderr(),
	}
}
