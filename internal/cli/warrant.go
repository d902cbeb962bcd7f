package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	warrantReason   string
	warrantDuration time.Duration
)

func init() {
	rootCmd.AddCommand(warrantCmd)
	warrantCmd.Flags().StringVar(&warrantReason, "reason", "", "Mandatory reason for the warrant (required)")
	warrantCmd.Flags().DurationVar(&warrantDuration, "duration", 10*time.Minute, "Token validity period (max 1h)")
}

var warrantCmd = &cobra.Command{
	Use:   "warrant",
	Short: "Issue a single-use administrative warrant",
	Long: "Creates a time-limited, single-use token required for irreversible\n" +
		"actions: promoting a capability to core tier or enabling autonomy.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if warrantReason == "" {
			return fmt.Errorf("--reason is required")
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		tok, err := c.IssueWarrant(cmd.Context(), warrantReason, warrantDuration)
		if err != nil {
			return err
		}
		fmt.Printf("warrant: %s (expires %s)\n", tok.ID, tok.ExpiresAt.Format(time.RFC3339))
		return nil
	},
}
