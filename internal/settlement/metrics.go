package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClaimsTotal counts intents claimed by workers.
	ClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_settlement_claims_total",
		Help: "Total number of intents claimed by settlement workers",
	})

	// SettlementsTotal counts terminal settlement outcomes by status.
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_settlement_outcomes_total",
		Help: "Total number of settlements by terminal status",
	}, []string{"status"})

	// AdapterDuration observes adapter execution time.
	AdapterDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auction_settlement_adapter_duration_seconds",
		Help:    "Settlement adapter execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"adapter"})

	// ExpiredIntentsTotal counts QUEUED intents failed by the sweeper.
	ExpiredIntentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_settlement_expired_intents_total",
		Help: "Total number of queued intents expired before claim",
	})

	// StuckSubmittedGauge is the number of intents sitting SUBMITTED past
	// the stuck threshold.
	StuckSubmittedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "auction_settlement_stuck_submitted",
		Help: "Number of intents stuck in SUBMITTED beyond the stuck threshold",
	})
)
