package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rbxport",
	Short: "rbxport exports a Rekordbox database to Rekordbox-compatible XML.",
	Long: `rbxport reads a Rekordbox SQLite database (master.db) and writes the
same DJ_PLAYLISTS XML document the application's own export produces,
without opening Rekordbox. Optional passes romanize non-ASCII text,
prefix titles with their BPM, reorder playlists by BPM, scope the export
to selected playlists, and copy the referenced audio files into a bundle.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the configuration file")
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
