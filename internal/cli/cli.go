// Package cli implements the warp command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Version is the toolkit version reported by the version flag.
const Version = "0.1.0"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands
// registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "warp",
		Short:        "Warp fits spatial transforms to align images",
		Long:         `Warp is a toolkit for spatial transformations and pairwise image registration on a differentiable tensor substrate.`,
		Version:      Version,
		SilenceUsage: true,
	}

	root.AddCommand(c.validateCommand())
	root.AddCommand(c.demoCommand())

	return root
}
