package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "auction-engine",
	Short: "Dutch auction pricing and settlement engine",
	Long: `Dutch auction pricing and settlement engine for fixed-supply listings.

Each listing's price decays linearly from its start price to its reserve
price over a configured window. Buyers fetch a quote bound to a single-use
proof nonce, submit a buy intent against it, and a worker pool settles
exactly one winning intent per listing through the configured adapter.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
