package poller

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/thermohub/thermohub8-hass/internal/bus"
	"github.com/thermohub/thermohub8-hass/internal/readings"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func payloadT(t *testing.T, body string) *readings.Payload {
	t.Helper()
	p, err := readings.Decode([]byte(body), time.Now())
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return p
}

type mockFetcher struct {
	mu      sync.Mutex
	calls   int
	results []func() (*readings.Payload, error)
}

func (m *mockFetcher) Fetch(ctx context.Context) (*readings.Payload, error) {
	m.mu.Lock()
	idx := m.calls
	m.calls++
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	fn := m.results[idx]
	m.mu.Unlock()
	return fn()
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func ok(p *readings.Payload) func() (*readings.Payload, error) {
	return func() (*readings.Payload, error) { return p, nil }
}

func fail(err error) func() (*readings.Payload, error) {
	return func() (*readings.Payload, error) { return nil, err }
}

func TestRefreshCachesPayloadAndPublishes(t *testing.T) {
	payload := payloadT(t, `{"sensors":[{"id":1,"value":21.3}],"ts":"2025-01-01T00:00:00Z"}`)
	fetcher := &mockFetcher{results: []func() (*readings.Payload, error){ok(payload)}}
	b := bus.New()
	sub := b.Subscribe()

	p := New(fetcher, time.Second, b, testLogger())
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if p.Data() != payload {
		t.Fatalf("expected payload to be cached")
	}
	if !p.Healthy() {
		t.Fatalf("expected poller to be healthy after success")
	}
	if p.FailureStreak() != 0 {
		t.Fatalf("expected zero failure streak, got %d", p.FailureStreak())
	}
	select {
	case got := <-sub:
		if got != payload {
			t.Fatalf("expected published payload to match cache")
		}
	default:
		t.Fatalf("expected snapshot on the bus")
	}
}

func TestRefreshKeepsLastKnownGoodOnFailure(t *testing.T) {
	payload := payloadT(t, `{"sensors":[{"id":1,"value":21.3}]}`)
	fetchErr := errors.New("connection refused")
	fetcher := &mockFetcher{results: []func() (*readings.Payload, error){
		ok(payload),
		fail(fetchErr),
	}}

	p := New(fetcher, time.Second, nil, testLogger())
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if err := p.Refresh(context.Background()); !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error surfaced, got %v", err)
	}

	if p.Data() != payload {
		t.Fatalf("cached payload must be retained across a failed cycle")
	}
	if p.FailureStreak() != 1 {
		t.Fatalf("expected failure streak 1, got %d", p.FailureStreak())
	}
	// A single miss does not flip health; views keep reporting prior values.
	if !p.Healthy() {
		t.Fatalf("one failed cycle must not mark the poller unhealthy")
	}
}

func TestHealthyAfterRepeatedFailures(t *testing.T) {
	payload := payloadT(t, `{"sensors":[]}`)
	fetchErr := errors.New("boom")
	fetcher := &mockFetcher{results: []func() (*readings.Payload, error){
		ok(payload),
		fail(fetchErr),
	}}

	p := New(fetcher, time.Second, nil, testLogger())
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	for i := 0; i < unhealthyAfter; i++ {
		_ = p.Refresh(context.Background())
	}
	if p.Healthy() {
		t.Fatalf("expected poller unhealthy after %d consecutive failures", unhealthyAfter)
	}
	if p.Data() != payload {
		t.Fatalf("last-known-good payload must survive the failure streak")
	}

	// Recovery resets the streak.
	fetcher.mu.Lock()
	fetcher.results = append(fetcher.results, ok(payload))
	fetcher.mu.Unlock()
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("recovery refresh: %v", err)
	}
	if !p.Healthy() || p.FailureStreak() != 0 {
		t.Fatalf("expected recovery to reset health, streak=%d", p.FailureStreak())
	}
}

func TestHealthyFalseBeforeFirstSuccess(t *testing.T) {
	fetcher := &mockFetcher{results: []func() (*readings.Payload, error){fail(errors.New("down"))}}
	p := New(fetcher, time.Second, nil, testLogger())
	if p.Healthy() {
		t.Fatalf("poller must not report healthy before the first success")
	}
	if p.Data() != nil {
		t.Fatalf("no payload expected before the first success")
	}
}

func TestRefreshSingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	payload := payloadT(t, `{"sensors":[]}`)
	fetcher := &mockFetcher{results: []func() (*readings.Payload, error){
		func() (*readings.Payload, error) {
			close(started)
			<-release
			return payload, nil
		},
	}}

	p := New(fetcher, time.Second, nil, testLogger())

	done := make(chan error, 1)
	go func() { done <- p.Refresh(context.Background()) }()

	<-started
	// A second trigger while a cycle is in flight is coalesced, not queued.
	if err := p.Refresh(context.Background()); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("in-flight refresh: %v", err)
	}
	if fetcher.callCount() != 1 {
		t.Fatalf("expected exactly one outbound fetch, got %d", fetcher.callCount())
	}
}

func TestOnCycleHookObservesOutcome(t *testing.T) {
	fetchErr := errors.New("down")
	fetcher := &mockFetcher{results: []func() (*readings.Payload, error){
		fail(fetchErr),
		ok(payloadT(t, `{"sensors":[]}`)),
	}}

	var outcomes []error
	p := New(fetcher, time.Second, nil, testLogger())
	p.SetOnCycle(func(err error) { outcomes = append(outcomes, err) })

	_ = p.Refresh(context.Background())
	_ = p.Refresh(context.Background())

	if len(outcomes) != 2 {
		t.Fatalf("expected 2 observed cycles, got %d", len(outcomes))
	}
	if !errors.Is(outcomes[0], fetchErr) || outcomes[1] != nil {
		t.Fatalf("unexpected outcomes: %v", outcomes)
	}
}
