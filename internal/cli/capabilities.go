package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	promoteWarrant string
	invokePayload  string
)

func init() {
	rootCmd.AddCommand(capabilitiesCmd)
	capabilitiesCmd.AddCommand(capabilitiesListCmd, capabilitiesPromoteCmd, capabilitiesInvokeCmd)
	capabilitiesPromoteCmd.Flags().StringVar(&promoteWarrant, "warrant", "", "Warrant token id (required)")
	capabilitiesInvokeCmd.Flags().StringVar(&invokePayload, "payload", "{}", "JSON payload")
}

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Inspect and manage registered capabilities",
}

var capabilitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List capabilities and their trust tiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		caps, err := c.Capabilities(cmd.Context())
		if err != nil {
			return err
		}
		if len(caps) == 0 {
			fmt.Println("no capabilities registered")
			return nil
		}
		for _, d := range caps {
			fmt.Printf("%-40s %s\n", d.Name, d.TierLabel)
		}
		return nil
	},
}

var capabilitiesPromoteCmd = &cobra.Command{
	Use:   "promote <name>",
	Short: "Permanently promote a generated capability to core tier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		desc, err := c.Promote(cmd.Context(), args[0], promoteWarrant)
		if err != nil {
			return err
		}
		fmt.Printf("%s is now %s tier\n", desc.Name, desc.TierLabel)
		return nil
	},
}

var capabilitiesInvokeCmd = &cobra.Command{
	Use:   "invoke <name>",
	Short: "Dispatch one capability call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload map[string]any
		if err := json.Unmarshal([]byte(invokePayload), &payload); err != nil {
			return fmt.Errorf("invalid --payload: %w", err)
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		result, err := c.Invoke(cmd.Context(), args[0], payload)
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}
