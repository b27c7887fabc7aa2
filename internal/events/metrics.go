package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PublishedTotal tracks settlement events published by terminal status.
	PublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_events_published_total",
			Help: "Total number of settlement events published",
		},
		[]string{"status"},
	)

	// DroppedTotal tracks events dropped for slow subscribers.
	DroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auction_events_dropped_total",
		Help: "Total number of events dropped because a subscriber was slow",
	})

	// SubscribersGauge tracks connected websocket subscribers.
	SubscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "auction_events_ws_subscribers",
		Help: "Number of connected websocket event subscribers",
	})
)
