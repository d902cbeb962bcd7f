// Package cli implements the hearthd command tree. The serve command runs
// the daemon in-process; every other command talks to a running instance
// over its HTTP API.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hearthd/hearth/sdk/go/hearth"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "hearthd",
	Short: "Personal assistant backend with a guarded capability forge",
	Long: "hearthd synthesizes, validates, and dispatches capabilities at runtime.\n" +
		"Generated code runs behind a trust-tier firewall, a human-in-the-loop\n" +
		"safety governor, and a hash-chained audit log.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8470", "Address of the hearthd API")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient() (*hearth.Client, error) {
	return hearth.New(hearth.WithBaseURL(serverURL))
}
