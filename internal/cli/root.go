package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "pshelper",
	Short: "Photogrammetry session manager",
	Long: `pshelper - Photogrammetry session manager

Keeps a collection of photogrammetry capture sessions organised: sorts loose
images into Raw, Processed and Masks folders, tracks how far each session has
progressed through alignment, dense cloud, model and texture generation, and
keeps a per-session record in sync with the files on disk.

Each sub-directory of the collection directory is one session.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)

	// Configuration flags
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.pshelper/config.yaml)")
	rootCmd.PersistentFlags().String("catalog", "", "Catalog database path (overrides config)")
	rootCmd.PersistentFlags().String("sort", "", "Sort field (folder, id, name, date, images, status, align, cloud, model, texture)")

	// Output flags
	rootCmd.PersistentFlags().IntP("verbose", "v", 0, "Verbosity level (0-2)")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "Output format (text, json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pshelper %s (commit: %s, built: %s)\n", version, commit, date)
	},
}
