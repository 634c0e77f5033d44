package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"evroute/config"
	"evroute/core/network"
	"evroute/core/routing"
)

var lpDir string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the scenario and build every vehicle's model without solving",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&lpDir, "lp-dir", "", "write each vehicle's model in LP format to this directory")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	scenario, err := network.LoadScenario(cfg.Scenario)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}

	opts := cfg.Solver.RoutingOptions()
	for _, veh := range scenario.Vehicles {
		model, err := routing.Build(scenario.Network, veh, opts)
		if err != nil {
			return fmt.Errorf("vehicle %s: %w", veh.ID, err)
		}
		fmt.Printf("vehicle %s: %d variables, %d constraints, quadratic=%t\n",
			veh.ID, model.Problem.NumVars(), len(model.Problem.Constraints()), model.Problem.IsQuadratic())
		if lpDir != "" {
			if err := writeLPFile(model, veh.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeLPFile(model *routing.Model, vehicleID string) error {
	if err := os.MkdirAll(lpDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(lpDir, vehicleID+".lp")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := model.Problem.WriteLP(f); err != nil {
		return fmt.Errorf("vehicle %s: %w", vehicleID, err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
