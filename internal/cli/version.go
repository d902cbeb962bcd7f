package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set by ldflags at build time.
var version = "dev"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the hearthd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}
