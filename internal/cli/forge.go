package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hearthd/hearth/internal/model"
)

var (
	forgeDescription string
	forgeParams      []string
)

func init() {
	rootCmd.AddCommand(forgeCmd)
	forgeCmd.AddCommand(forgeCreateCmd)
	forgeCreateCmd.Flags().StringVar(&forgeDescription, "description", "", "What the capability does")
	forgeCreateCmd.Flags().StringArrayVar(&forgeParams, "param", nil, "Parameter as name:type[:required], repeatable")
}

var forgeCmd = &cobra.Command{
	Use:   "forge",
	Short: "Capability synthesis",
}

var forgeCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Synthesize a new capability",
	Long: "Submits a capability spec to the forge. In HITL mode the request is\n" +
		"filed for approval; in autonomous mode it compiles immediately.",
	Args: cobra.ExactArgs(1),
	RunE: runForgeCreate,
}

func runForgeCreate(cmd *cobra.Command, args []string) error {
	spec := model.CapabilitySpec{
		Name:        args[0],
		Description: forgeDescription,
	}
	for _, p := range forgeParams {
		param, err := parseParam(p)
		if err != nil {
			return err
		}
		spec.Parameters = append(spec.Parameters, param)
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	res, err := c.CreateCapability(cmd.Context(), spec)
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	if !res.Success && res.Status == model.SynthesisFailed {
		os.Exit(1)
	}
	return nil
}

func parseParam(s string) (model.ParameterSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return model.ParameterSpec{}, fmt.Errorf("invalid --param %q, want name:type[:required]", s)
	}
	p := model.ParameterSpec{Name: parts[0], Type: parts[1]}
	if len(parts) == 3 {
		p.Required = parts[2] == "required" || parts[2] == "true"
	}
	return p, nil
}
