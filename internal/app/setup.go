package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/auction-engine/internal/events"
	"github.com/mselser95/auction-engine/internal/intent"
	"github.com/mselser95/auction-engine/internal/listings"
	"github.com/mselser95/auction-engine/internal/nonce"
	"github.com/mselser95/auction-engine/internal/ratelimit"
	"github.com/mselser95/auction-engine/internal/settlement"
	"github.com/mselser95/auction-engine/internal/storage"
	"github.com/mselser95/auction-engine/pkg/config"
	"github.com/mselser95/auction-engine/pkg/healthprobe"
	"github.com/mselser95/auction-engine/pkg/httpserver"
)

// New creates a new engine instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	store, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	listingSvc, err := listings.New(&listings.Config{
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup listing service: %w", err)
	}

	nonces := nonce.New(&nonce.Config{
		Store:      store,
		Listings:   listingSvc,
		TTL:        cfg.NonceTTL,
		GCInterval: cfg.NonceGCInterval,
		Logger:     logger,
	})

	limiter := ratelimit.New(&ratelimit.Config{
		WalletPerSec:  cfg.RateWalletPerSec,
		WalletBurst:   cfg.RateWalletBurst,
		ListingPerSec: cfg.RateListingPerSec,
		ListingBurst:  cfg.RateListingBurst,
		Logger:        logger,
	})

	tolerance, err := setupTolerance(cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup tolerance: %w", err)
	}

	validator := intent.New(&intent.Config{
		Store:     store,
		Listings:  listingSvc,
		Nonces:    nonces,
		Limiter:   limiter,
		Tolerance: tolerance,
		IntentTTL: cfg.IntentTTL,
		Logger:    logger,
	})

	bus := events.NewBus(&events.Config{
		BufferSize: cfg.EventBufferSize,
		Logger:     logger,
	})
	hub := events.NewHub(bus, logger)

	adapter, err := setupAdapter(cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup adapter: %w", err)
	}

	pool := settlement.New(&settlement.Config{
		Store:          store,
		Listings:       listingSvc,
		Adapter:        adapter,
		Publisher:      bus,
		WorkerCount:    cfg.WorkerCount,
		PollInterval:   cfg.WorkerPollInterval,
		AdapterTimeout: cfg.AdapterTimeout,
		Currency:       cfg.Currency,
		Logger:         logger,
	})

	sweeper := settlement.NewSweeper(&settlement.SweeperConfig{
		Store:      store,
		Publisher:  bus,
		Interval:   cfg.IntentSweepInterval,
		StuckAfter: cfg.StuckSubmittedAge,
		Currency:   cfg.Currency,
		Logger:     logger,
	})

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Store:         store,
		Listings:      listingSvc,
		Nonces:        nonces,
		Validator:     validator,
		Limiter:       limiter,
		Hub:           hub,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		store:         store,
		listings:      listingSvc,
		nonces:        nonces,
		limiter:       limiter,
		validator:     validator,
		bus:           bus,
		hub:           hub,
		pool:          pool,
		sweeper:       sweeper,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.StorageMode == "postgres" {
		pgStore, err := storage.NewPostgresStore(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres store: %w", err)
		}
		return pgStore, nil
	}

	return storage.NewMemoryStore(logger), nil
}

func setupTolerance(cfg *config.Config) (intent.Tolerance, error) {
	absMin, err := decimal.NewFromString(cfg.QuoteToleranceAbsMin)
	if err != nil {
		return intent.Tolerance{}, fmt.Errorf("parse QUOTE_TOLERANCE_ABS_MIN %q: %w", cfg.QuoteToleranceAbsMin, err)
	}

	return intent.Tolerance{
		BasisPoints: cfg.QuoteToleranceBP,
		AbsMin:      absMin,
	}, nil
}

func setupAdapter(cfg *config.Config) (settlement.Adapter, error) {
	switch cfg.SettlementMode {
	case "demo":
		return settlement.NewDemoAdapter(), nil
	case "chain":
		// The escrow contract client ships in a separate build.
		return nil, fmt.Errorf("settlement mode %q is not available in this build", cfg.SettlementMode)
	default:
		return nil, fmt.Errorf("unknown settlement mode %q", cfg.SettlementMode)
	}
}
