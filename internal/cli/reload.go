package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reloadCmd)
	reloadCmd.AddCommand(reloadStatusCmd, reloadEnableCmd, reloadDisableCmd, reloadTriggerCmd)
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Hot-reload controls for generated capabilities",
}

var reloadStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show hot-reload watcher state",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		st, err := c.ReloadStatus(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("enabled: %v, last reload: %s (%d loaded)\n", st.Enabled, st.LastReload, st.LastCount)
		return nil
	},
}

var reloadEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable event-driven reloading",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if _, err := c.SetReload(cmd.Context(), true); err != nil {
			return err
		}
		fmt.Println("hot-reload enabled")
		return nil
	},
}

var reloadDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable event-driven reloading",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if _, err := c.SetReload(cmd.Context(), false); err != nil {
			return err
		}
		fmt.Println("hot-reload disabled")
		return nil
	},
}

var reloadTriggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Force an immediate registry rebuild",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		count, err := c.TriggerReload(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("reloaded %d capabilities\n", count)
		return nil
	},
}
