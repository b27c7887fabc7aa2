// Package events publishes settlement lifecycle events to external
// subscribers. Delivery is best-effort fan-out: the engine's correctness
// never depends on a subscriber keeping up.
package events

import (
	"sync"

	"go.uber.org/zap"

	"github.com/mselser95/auction-engine/pkg/types"
)

// Publisher emits one event per terminal settlement outcome.
type Publisher interface {
	Publish(ev types.SettlementEvent)
}

// Bus is an in-process fan-out publisher. Slow subscribers drop messages
// rather than block the settlement path.
type Bus struct {
	mu         sync.RWMutex
	subs       map[int]chan types.SettlementEvent
	nextID     int
	bufferSize int
	logger     *zap.Logger
}

// Config holds bus configuration.
type Config struct {
	BufferSize int
	Logger     *zap.Logger
}

// NewBus creates an event bus.
func NewBus(cfg *Config) *Bus {
	return &Bus{
		subs:       make(map[int]chan types.SettlementEvent),
		bufferSize: cfg.BufferSize,
		logger:     cfg.Logger,
	}
}

// Publish fans the event out to every subscriber.
func (b *Bus) Publish(ev types.SettlementEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	PublishedTotal.WithLabelValues(string(ev.Status)).Inc()

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			DroppedTotal.Inc()
			b.logger.Warn("event-dropped-slow-subscriber",
				zap.Int("subscriber", id),
				zap.String("intent-id", ev.IntentID))
		}
	}
}

// Subscribe registers a new subscriber. The returned cancel function removes
// the subscription and closes its channel.
func (b *Bus) Subscribe() (<-chan types.SettlementEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan types.SettlementEvent, b.bufferSize)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
