package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AllowedTotal tracks requests admitted by the rate limiter.
	AllowedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_ratelimit_allowed_total",
		Help: "Total number of requests admitted by the rate limiter",
	})

	// RejectionsTotal tracks rate-limited requests by bucket.
	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_ratelimit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"bucket"},
	)
)
