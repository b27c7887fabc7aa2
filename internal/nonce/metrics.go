package nonce

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IssuedTotal tracks nonces issued.
	IssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_nonce_issued_total",
		Help: "Total number of price nonces issued",
	})

	// ConsumedTotal tracks successful nonce consumptions.
	ConsumedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_nonce_consumed_total",
		Help: "Total number of price nonces consumed",
	})

	// ConsumeFailuresTotal tracks rejected consumption attempts (unknown,
	// already consumed, or expired tokens).
	ConsumeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_nonce_consume_failures_total",
		Help: "Total number of rejected nonce consumption attempts",
	})

	// GCDeletedTotal tracks expired nonces garbage-collected.
	GCDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_nonce_gc_deleted_total",
		Help: "Total number of expired nonces garbage-collected",
	})
)
