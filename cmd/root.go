// Package cmd implements the tosho command line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"tosho/engine"
)

var (
	registry *engine.Sources
	logger   *engine.LoggerService

	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "tosho",
	Short: "Search and download manga from multiple sources",
	Long: `tosho aggregates manga catalogs behind a single interface.
Search across every registered source at once, list chapters and
download them as numbered page images.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = engine.NewLogger(verbose)
		registry.UseLogger(logger)
	},
	SilenceUsage: true,
}

// Execute runs the CLI against the given source registry.
func Execute(sources *engine.Sources) {
	registry = sources
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine readable JSON")
}
