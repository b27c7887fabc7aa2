package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PriceComputationsTotal tracks successful price computations.
	PriceComputationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_oracle_price_computations_total",
		Help: "Total number of decayed prices computed",
	})
)
