// Package stream fans newly archived events out to live subscribers.
package stream

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mr1hm/disaster-watch/internal/metrics"
	"github.com/mr1hm/disaster-watch/internal/models"
)

const subscriberBuffer = 100

type Broadcaster struct {
	subscribers map[uint64]chan *models.DisasterEvent
	nextID      atomic.Uint64
	dropped     atomic.Uint64
	closed      bool
	mu          sync.RWMutex
	metrics     *metrics.Metrics
}

// NewBroadcaster creates an empty broadcaster. m may be nil.
func NewBroadcaster(m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan *models.DisasterEvent),
		metrics:     m,
	}
}

// Subscribe registers a new listener. After Close the returned channel is already closed.
func (b *Broadcaster) Subscribe() (uint64, <-chan *models.DisasterEvent) {
	id := b.nextID.Add(1)
	ch := make(chan *models.DisasterEvent, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return id, ch
	}
	b.subscribers[id] = ch
	b.observe()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
		b.observe()
	}
}

// Broadcast never blocks; a subscriber whose buffer is full misses the event.
func (b *Broadcaster) Broadcast(e *models.DisasterEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
			slog.Debug("dropping event for slow subscriber", "subscriber", id, "event", e.Key())
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped is the number of deliveries skipped because a subscriber fell behind.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels, causing streams to exit gracefully
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	b.observe()
}

// observe must be called with mu held.
func (b *Broadcaster) observe() {
	if b.metrics != nil {
		b.metrics.StreamSubscribers.Set(float64(len(b.subscribers)))
	}
}
