package app

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/auction-engine/pkg/config"
)

func minimalConfig() *config.Config {
	return &config.Config{
		LogLevel:             "info",
		HTTPPort:             "0",
		Currency:             "USDC",
		NonceTTL:             15 * time.Second,
		NonceGCInterval:      time.Minute,
		QuoteToleranceBP:     50,
		QuoteToleranceAbsMin: "0.01",
		IntentTTL:            2 * time.Minute,
		IntentSweepInterval:  30 * time.Second,
		SettlementMode:       "demo",
		WorkerCount:          1,
		WorkerPollInterval:   250 * time.Millisecond,
		AdapterTimeout:       time.Second,
		StuckSubmittedAge:    5 * time.Minute,
		RateWalletPerSec:     5,
		RateWalletBurst:      10,
		RateListingPerSec:    2,
		RateListingBurst:     4,
		EventBufferSize:      16,
		StorageMode:          "memory",
	}
}

func TestNew_MemoryMode(t *testing.T) {
	logger := zap.NewNop()

	a, err := New(minimalConfig(), logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if a.store == nil {
		t.Error("store not wired")
	}
	if a.validator == nil {
		t.Error("validator not wired")
	}
	if a.pool == nil {
		t.Error("worker pool not wired")
	}
	if a.httpServer == nil {
		t.Error("http server not wired")
	}

	if err := a.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_ChainModeUnavailable(t *testing.T) {
	cfg := minimalConfig()
	cfg.SettlementMode = "chain"

	_, err := New(cfg, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for chain settlement mode")
	}
}

func TestNew_BadToleranceFloor(t *testing.T) {
	cfg := minimalConfig()
	cfg.QuoteToleranceAbsMin = "not-a-decimal"

	_, err := New(cfg, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for malformed tolerance floor")
	}
}
