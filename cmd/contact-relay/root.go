package main

import (
	"github.com/spf13/cobra"

	"github.com/shineum/contact-relay/internal/config"
)

// Version information set by ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "contact-relay",
		Short:        "Relay portfolio contact-form submissions as email",
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newServeCmd(),
		newTestEmailCmd(),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
