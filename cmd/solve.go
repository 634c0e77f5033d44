package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"evroute/app"
	"evroute/config"
	"evroute/infra/logger"
)

var (
	scenarioPath string
	outputPath   string
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Plan routes for every vehicle and aggregate charging demand",
	RunE:  runSolve,
}

func init() {
	solveCmd.Flags().StringVar(&scenarioPath, "scenario", "", "scenario file overriding the configuration")
	solveCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the run summary to this file instead of stdout")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if scenarioPath != "" {
		cfg.Scenario = scenarioPath
	}

	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer f.Close()
		svc.SetOutput(f)
	}
	return svc.Run(ctx)
}
