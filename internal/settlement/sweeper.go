package settlement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/auction-engine/internal/events"
	"github.com/mselser95/auction-engine/internal/storage"
	"github.com/mselser95/auction-engine/pkg/types"
)

// Sweeper periodically fails QUEUED intents past their expiry and surfaces
// intents stuck in SUBMITTED.
type Sweeper struct {
	store      storage.Store
	publisher  events.Publisher
	interval   time.Duration
	stuckAfter time.Duration
	currency   string
	logger     *zap.Logger
}

// SweeperConfig holds sweeper configuration.
type SweeperConfig struct {
	Store     storage.Store
	Publisher events.Publisher
	Interval  time.Duration
	// StuckAfter is how long an intent may sit SUBMITTED before the stuck
	// gauge counts it. Workers finalize well inside the adapter timeout, so
	// anything older points at a crashed worker.
	StuckAfter time.Duration
	Currency   string
	Logger     *zap.Logger
}

// NewSweeper creates an intent sweeper.
func NewSweeper(cfg *SweeperConfig) *Sweeper {
	return &Sweeper{
		store:      cfg.Store,
		publisher:  cfg.Publisher,
		interval:   cfg.Interval,
		stuckAfter: cfg.StuckAfter,
		currency:   cfg.Currency,
		logger:     cfg.Logger,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("intent-sweeper-stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. Exported so operators can trigger it out of band.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now()

	expired, err := s.store.ExpireQueuedIntents(ctx, now)
	if err != nil {
		s.logger.Error("intent-expiry-sweep-failed", zap.Error(err))
	} else if len(expired) > 0 {
		ExpiredIntentsTotal.Add(float64(len(expired)))
		s.logger.Info("intents-expired", zap.Int("count", len(expired)))

		for _, i := range expired {
			s.publisher.Publish(types.SettlementEvent{
				Type:          types.EventTypeSettlement,
				IntentID:      i.ID,
				ListingID:     i.ListingID,
				Status:        types.IntentFailed,
				FinalPrice:    i.ClientPrice,
				Currency:      s.currency,
				FailureReason: i.FailureReason,
			})
		}
	}

	stuck, err := s.store.CountStuckSubmitted(ctx, now.Add(-s.stuckAfter))
	if err != nil {
		s.logger.Error("stuck-intent-count-failed", zap.Error(err))
		return
	}
	StuckSubmittedGauge.Set(float64(stuck))
	if stuck > 0 {
		s.logger.Warn("intents-stuck-submitted", zap.Int64("count", stuck))
	}
}
