package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mselser95/auction-engine/internal/events"
	"github.com/mselser95/auction-engine/internal/listings"
	"github.com/mselser95/auction-engine/internal/storage"
	"github.com/mselser95/auction-engine/pkg/types"
)

// Pool is the settlement worker pool. Each worker claims one intent at a
// time; the claim is a conditional write, so no intent is ever processed by
// two workers.
type Pool struct {
	store          storage.Store
	listings       *listings.Service
	adapter        Adapter
	publisher      events.Publisher
	workerCount    int
	pollInterval   time.Duration
	adapterTimeout time.Duration
	currency       string
	logger         *zap.Logger
}

// Config holds worker pool configuration.
type Config struct {
	Store          storage.Store
	Listings       *listings.Service
	Adapter        Adapter
	Publisher      events.Publisher
	WorkerCount    int
	PollInterval   time.Duration
	AdapterTimeout time.Duration
	Currency       string
	Logger         *zap.Logger
}

// New creates a settlement worker pool.
func New(cfg *Config) *Pool {
	return &Pool{
		store:          cfg.Store,
		listings:       cfg.Listings,
		adapter:        cfg.Adapter,
		publisher:      cfg.Publisher,
		workerCount:    cfg.WorkerCount,
		pollInterval:   cfg.PollInterval,
		adapterTimeout: cfg.AdapterTimeout,
		currency:       cfg.Currency,
		logger:         cfg.Logger,
	}
}

// Run starts the workers and blocks until ctx is cancelled and every worker
// has drained.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := range p.workerCount {
		wg.Add(1)
		workerID := fmt.Sprintf("worker-%d", i)
		go func() {
			defer wg.Done()
			p.runWorker(ctx, workerID)
		}()
	}
	wg.Wait()
	p.logger.Info("settlement-pool-stopped")
}

func (p *Pool) runWorker(ctx context.Context, workerID string) {
	log := p.logger.With(zap.String("worker-id", workerID))
	log.Info("settlement-worker-started", zap.String("adapter", p.adapter.Name()))

	for {
		intent, err := p.store.ClaimNextIntent(ctx, workerID, time.Now())
		switch {
		case errors.Is(err, storage.ErrNoClaimableIntent):
			if !p.sleep(ctx) {
				return
			}
			continue
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			log.Error("intent-claim-failed", zap.Error(err))
			if !p.sleep(ctx) {
				return
			}
			continue
		}

		ClaimsTotal.Inc()
		p.process(ctx, intent, log)

		if ctx.Err() != nil {
			return
		}
	}
}

func (p *Pool) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(p.pollInterval):
		return true
	}
}

// process drives one claimed intent to a terminal state. The intent is
// already SUBMITTED; whatever happens here ends in exactly one settlement
// record, one finalize, and one event.
func (p *Pool) process(ctx context.Context, intent *types.BuyIntent, log *zap.Logger) {
	log = log.With(
		zap.String("intent-id", intent.ID),
		zap.String("listing-id", intent.ListingID))

	// Re-check after the claim. Another worker may have sold this listing
	// between our claim and now.
	listing, err := p.listings.GetFresh(ctx, intent.ListingID)
	if err != nil {
		log.Error("listing-recheck-failed", zap.Error(err))
		p.fail(ctx, intent, types.ErrListingNotFound.Code, log)
		return
	}
	if listing.Status != types.ListingActive {
		log.Info("intent-lost-race", zap.String("listing-status", string(listing.Status)))
		p.fail(ctx, intent, types.ErrListingNotActive.Code, log)
		return
	}

	execCtx, cancel := context.WithTimeout(ctx, p.adapterTimeout)
	defer cancel()

	start := time.Now()
	txHash, err := p.adapter.Execute(execCtx, &ExecuteRequest{
		IntentID:      intent.ID,
		ListingID:     intent.ListingID,
		WalletAddress: intent.WalletAddress,
		Price:         intent.ClientPrice,
		Currency:      p.currency,
	})
	AdapterDuration.With(prometheus.Labels{"adapter": p.adapter.Name()}).Observe(time.Since(start).Seconds())

	if err != nil {
		log.Error("adapter-execution-failed",
			zap.String("adapter", p.adapter.Name()),
			zap.Error(err))
		p.fail(ctx, intent, types.SettlementFailedCode, log)
		return
	}

	record := &types.SettlementRecord{
		ID:         uuid.NewString(),
		IntentID:   intent.ID,
		ListingID:  intent.ListingID,
		TxHash:     txHash,
		FinalPrice: intent.ClientPrice,
		Currency:   p.currency,
		Status:     types.SettlementSettled,
		CreatedAt:  time.Now(),
	}
	if err := p.store.InsertSettlementRecord(ctx, record); err != nil {
		// A record already exists only if this intent was processed before.
		// The adapter run is done either way; stop without finalizing again.
		log.Error("settlement-record-write-failed", zap.Error(err))
		return
	}

	// Idempotent; the first settlement wins and later calls are no-ops.
	if err := p.listings.MarkSold(ctx, intent.ListingID); err != nil {
		log.Error("listing-mark-sold-failed", zap.Error(err))
	}

	if err := p.store.FinalizeIntent(ctx, intent.ID, types.IntentConfirmed, ""); err != nil {
		log.Error("intent-finalize-failed", zap.Error(err))
		return
	}

	SettlementsTotal.WithLabelValues(string(types.SettlementSettled)).Inc()
	log.Info("intent-settled",
		zap.String("tx-hash", txHash),
		zap.String("final-price", intent.ClientPrice.String()))

	p.publisher.Publish(types.SettlementEvent{
		Type:       types.EventTypeSettlement,
		IntentID:   intent.ID,
		ListingID:  intent.ListingID,
		Status:     types.IntentConfirmed,
		TxHash:     txHash,
		FinalPrice: intent.ClientPrice,
		Currency:   p.currency,
	})
}

func (p *Pool) fail(ctx context.Context, intent *types.BuyIntent, reason string, log *zap.Logger) {
	record := &types.SettlementRecord{
		ID:            uuid.NewString(),
		IntentID:      intent.ID,
		ListingID:     intent.ListingID,
		FinalPrice:    intent.ClientPrice,
		Currency:      p.currency,
		Status:        types.SettlementFailed,
		FailureReason: reason,
		CreatedAt:     time.Now(),
	}
	if err := p.store.InsertSettlementRecord(ctx, record); err != nil {
		log.Error("settlement-record-write-failed", zap.Error(err))
		return
	}

	if err := p.store.FinalizeIntent(ctx, intent.ID, types.IntentFailed, reason); err != nil {
		log.Error("intent-finalize-failed", zap.Error(err))
		return
	}

	SettlementsTotal.WithLabelValues(string(types.SettlementFailed)).Inc()

	p.publisher.Publish(types.SettlementEvent{
		Type:          types.EventTypeSettlement,
		IntentID:      intent.ID,
		ListingID:     intent.ListingID,
		Status:        types.IntentFailed,
		FinalPrice:    intent.ClientPrice,
		Currency:      p.currency,
		FailureReason: reason,
	})
}
