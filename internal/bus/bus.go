package bus

import (
	"sync"

	"github.com/thermohub/thermohub8-hass/internal/readings"
)

// Bus provides fan-out pub/sub semantics for *readings.Payload snapshots.
// Each Subscribe call gets its own channel that receives every future
// publication. Past snapshots are not replayed. Safe for concurrent
// publishers and subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan *readings.Payload
}

// New creates a ready-to-use Bus.
func New() *Bus { return &Bus{} }

// Subscribe returns a read-only channel that will receive all future
// payload snapshots.
func (b *Bus) Subscribe() <-chan *readings.Payload {
	ch := make(chan *readings.Payload, 1) // small buffer avoids blocking
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers the snapshot to all subscribers without blocking the
// publisher. A subscriber with a full buffer simply misses this snapshot and
// picks up the next one; the poll loop must never stall on a slow consumer.
func (b *Bus) Publish(p *readings.Payload) {
	b.mu.RLock()
	subs := make([]chan *readings.Payload, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- p:
		default:
		}
	}
}
