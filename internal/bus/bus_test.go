package bus

import (
	"testing"
	"time"

	"github.com/thermohub/thermohub8-hass/internal/readings"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := New()
	sub1 := b.Subscribe()
	sub2 := b.Subscribe()

	p := readings.NewPayload(map[string]any{"ts": "now"}, time.Now())
	b.Publish(p)

	for i, sub := range []<-chan *readings.Payload{sub1, sub2} {
		select {
		case got := <-sub:
			if got != p {
				t.Fatalf("subscriber %d: wrong payload", i)
			}
		default:
			t.Fatalf("subscriber %d: expected a snapshot", i)
		}
	}
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	b := New()
	sub := b.Subscribe()

	first := readings.NewPayload(map[string]any{}, time.Now())
	second := readings.NewPayload(map[string]any{}, time.Now())
	third := readings.NewPayload(map[string]any{}, time.Now())

	done := make(chan struct{})
	go func() {
		b.Publish(first)
		b.Publish(second) // buffer full, dropped for this subscriber
		b.Publish(third)  // still must not block
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a slow subscriber")
	}

	if got := <-sub; got != first {
		t.Fatalf("expected the first snapshot to be buffered")
	}
}
