package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mselser95/auction-engine/internal/listings"
	"github.com/mselser95/auction-engine/internal/storage"
	"github.com/mselser95/auction-engine/pkg/config"
)

var seedDemoCmd = &cobra.Command{
	Use:   "seed-demo",
	Short: "Seed demo listings into the configured store",
	Long: `Creates a set of ACTIVE demo listings with staggered price curves so
the quote and settlement paths can be exercised immediately.

Requires STORAGE_MODE=postgres; the in-memory store does not outlive the
process that seeded it.`,
	RunE: runSeedDemo,
}

var seedCount int

func init() {
	rootCmd.AddCommand(seedDemoCmd)
	seedDemoCmd.Flags().IntVarP(&seedCount, "count", "n", 3, "Number of demo listings to create")
}

// demoListingParams staggers the demo curves: higher start prices and
// longer windows as the index grows, reserve fixed at a fifth of start.
func demoListingParams(i int) listings.SeedParams {
	start := decimal.NewFromInt(int64(100 * (i + 1)))
	return listings.SeedParams{
		Title:         fmt.Sprintf("Demo listing %d", i+1),
		StartPrice:    start,
		ReservePrice:  start.Div(decimal.NewFromInt(5)).Round(2),
		DecayDuration: time.Duration(30+15*i) * time.Minute,
	}
}

func runSeedDemo(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.StorageMode != "postgres" {
		return fmt.Errorf("seed-demo requires STORAGE_MODE=postgres, got %q", cfg.StorageMode)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.NewPostgresStore(&storage.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		Database: cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	listingSvc, err := listings.New(&listings.Config{Store: store, Logger: logger})
	if err != nil {
		return fmt.Errorf("create listing service: %w", err)
	}
	defer listingSvc.Close()

	ctx := context.Background()
	for i := range seedCount {
		l, err := listingSvc.Seed(ctx, demoListingParams(i))
		if err != nil {
			return fmt.Errorf("seed listing %d: %w", i+1, err)
		}

		fmt.Printf("Seeded listing %s: %s -> %s over %s\n",
			l.ID, l.StartPrice, l.ReservePrice, l.DecayDuration)
	}

	return nil
}
