// Package commands provides the ayu CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// NewRootCmd builds the ayu command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ayu",
		Short: "Ayu health assistant backend",
		Long: `ayu runs the Ayu health assistant backend and its chat pipeline.

Examples:
  ayu serve                          Start the HTTP and WebSocket server
  ayu ask "I have a headache"        Resolve one message from the command line
  ayu ask -l te "fever"              Ask in Telugu
  ayu phrases check --strict         Validate the phrasebook and list missing translations
  ayu phrases match "chest pain"     Show which pipeline stage answers a message`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "ayu %s (built %s)\n", Version, BuildTime)
				return nil
			}
			return cmd.Help()
		},
	}
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newPhrasesCmd())
	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
