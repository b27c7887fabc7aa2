package listings

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHitsTotal tracks listing cache hits.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_listings_cache_hits_total",
		Help: "Total number of listing cache hits",
	})

	// CacheMissesTotal tracks listing cache misses.
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_listings_cache_misses_total",
		Help: "Total number of listing cache misses",
	})

	// AdminTriggersTotal tracks administrative auction-state rewrites.
	AdminTriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_listings_admin_triggers_total",
			Help: "Total number of administrative auction state changes",
		},
		[]string{"trigger"},
	)
)
