package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the rbxport version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("rbxport", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
