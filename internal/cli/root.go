// Package cli provides the command-line interface for chancache.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "chancache",
	Short: "Mirror a public Telegram channel into local JSON files",
	Long: "chancache scrapes a public Telegram channel's web preview page, " +
		"merges the posts into a local JSON cache, and keeps a latest-posts " +
		"projection and a run status file alongside it.",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("chancache %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing config.yaml")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
