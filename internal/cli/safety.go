package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var safetyWarrant string

func init() {
	rootCmd.AddCommand(safetyCmd)
	safetyCmd.AddCommand(safetyStatusCmd, safetyOnCmd, safetyOffCmd, safetyKillCmd)
	safetyOnCmd.Flags().StringVar(&safetyWarrant, "warrant", "", "Warrant token id (required)")
}

var safetyCmd = &cobra.Command{
	Use:   "safety",
	Short: "Safety governor controls",
}

var safetyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current safety mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		st, err := c.SafetyStatus(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("mode: %s (autonomous: %v)\n", st.Mode, st.Enabled)
		return nil
	},
}

var safetyOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Enable autonomous synthesis (requires a warrant)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		st, err := c.SetSafety(cmd.Context(), true, safetyWarrant)
		if err != nil {
			return err
		}
		fmt.Printf("mode: %s\n", st.Mode)
		return nil
	},
}

var safetyOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Require approval before every compilation",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		st, err := c.SetSafety(cmd.Context(), false, "")
		if err != nil {
			return err
		}
		fmt.Printf("mode: %s\n", st.Mode)
		return nil
	},
}

var safetyKillCmd = &cobra.Command{
	Use:   "kill",
	Short: "Engage the kill switch",
	Long:  "Forces HITL mode and terminates any in-flight compiler subprocess.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		st, err := c.KillSwitch(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("mode: %s\n", st.Mode)
		return nil
	},
}
