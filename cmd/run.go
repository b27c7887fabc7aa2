package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mselser95/auction-engine/internal/app"
	"github.com/mselser95/auction-engine/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the auction engine",
	Long: `Starts the auction engine, which will:
1. Serve decaying price quotes with single-use proof nonces
2. Validate and queue buy intents against those quotes
3. Settle queued intents through the worker pool, one winner per listing
4. Stream terminal settlement events over WebSocket`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runEngine(cmd *cobra.Command, args []string) error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	engine, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	err = engine.Run()
	if err != nil {
		return fmt.Errorf("run engine: %w", err)
	}

	return nil
}
