package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mselser95/auction-engine/internal/storage"
	"github.com/mselser95/auction-engine/pkg/config"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one out-of-band expiry sweep",
	Long: `Fails every QUEUED intent past its expiry and deletes expired price
nonces. The running engine does this on its own schedule; this command
exists for operators cleaning up after an outage.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.StorageMode != "postgres" {
		return fmt.Errorf("sweep requires STORAGE_MODE=postgres, got %q", cfg.StorageMode)
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()

	expired, err := store.ExpireQueuedIntents(ctx, now)
	if err != nil {
		return fmt.Errorf("expire queued intents: %w", err)
	}
	fmt.Printf("Expired %d queued intents\n", len(expired))

	deleted, err := store.DeleteExpiredNonces(ctx, now)
	if err != nil {
		return fmt.Errorf("delete expired nonces: %w", err)
	}
	fmt.Printf("Deleted %d expired nonces\n", deleted)

	return nil
}
