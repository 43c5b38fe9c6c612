package main

import (
	"os"

	"github.com/spf13/cobra"

	"portfolio-api/internal/config"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "portfolio",
		Short: "Portfolio content API",
		Long: `Serves the newsletter subscription and short link API.

Configuration is read from a TOML file and PORTFOLIO_* environment variables.
Running without a subcommand starts the HTTP server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultConfigPath, "path to the TOML config file")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newSubscribersCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
