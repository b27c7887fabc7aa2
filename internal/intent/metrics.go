package intent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AcceptedTotal counts intents that passed validation and were queued.
	AcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_intent_accepted_total",
		Help: "Total number of buy intents accepted and queued",
	})

	// RejectionsTotal counts validation failures by error code.
	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_intent_rejections_total",
		Help: "Total number of buy intents rejected during validation",
	}, []string{"code"})
)
