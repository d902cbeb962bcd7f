package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var approveTTL time.Duration

func init() {
	rootCmd.AddCommand(approvalsCmd)
	approvalsCmd.AddCommand(approvalsListCmd, approvalsApproveCmd, approvalsDenyCmd)
	approvalsApproveCmd.Flags().DurationVar(&approveTTL, "ttl", 0, "Approval validity window (0 = one-shot, no deadline)")
}

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "Review pending synthesis requests",
}

var approvalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List synthesis requests awaiting review",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		requests, err := c.Approvals(cmd.Context())
		if err != nil {
			return err
		}
		if len(requests) == 0 {
			fmt.Println("no approval requests")
			return nil
		}
		for _, r := range requests {
			fmt.Printf("%-50s %-10s %s\n", r.Key, r.Status, r.Reason)
		}
		return nil
	},
}

var approvalsApproveCmd = &cobra.Command{
	Use:   "approve <key>",
	Short: "Authorize a pending synthesis request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Approve(cmd.Context(), args[0], approveTTL); err != nil {
			return err
		}
		fmt.Printf("approved: %s\n", args[0])
		return nil
	},
}

var approvalsDenyCmd = &cobra.Command{
	Use:   "deny <key>",
	Short: "Refuse a pending synthesis request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Deny(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("denied: %s\n", args[0])
		return nil
	},
}
