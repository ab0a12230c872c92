// Package main is the entry point for the swap quoter.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "quoter",
		Short:        "Cross-chain swap quoter",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "path to configuration file")

	root.AddCommand(serveCmd(), mmSimCmd(), &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "swap-quoter %s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
