package cli

import (
	"github.com/spf13/cobra"

	"github.com/warp-ml/warp/internal/config"
)

// validateCommand creates the validate command. It loads a registration
// configuration file and reports whether it is usable.
func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a registration configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			c.Logger.Info("configuration is valid",
				"transform", cfg.Transform.Transform,
				"similarity", cfg.Registration.Similarity,
				"iterations", cfg.Registration.Iterations,
			)
			return nil
		},
	}
}
