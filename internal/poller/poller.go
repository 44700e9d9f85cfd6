package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/thermohub/thermohub8-hass/internal/bus"
	"github.com/thermohub/thermohub8-hass/internal/readings"
)

// ErrInFlight is returned when a refresh is requested while a cycle is
// already running. Overlapping cycles are coalesced, never queued.
var ErrInFlight = errors.New("poller: refresh already in flight")

// unhealthyAfter is the number of consecutive failed cycles before the hub is
// reported unhealthy. A single missed poll keeps serving last-known-good data
// without flapping sensor availability.
const unhealthyAfter = 3

// Fetcher runs one fetch cycle against the hub.
type Fetcher interface {
	Fetch(ctx context.Context) (*readings.Payload, error)
}

// Poller drives the fetch cycle on a fixed cadence and caches the latest
// successful payload. On failure the previous payload is retained
// (last-known-good) and the failure streak grows; the next tick retries
// unconditionally.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	bus      *bus.Bus
	logger   *logrus.Logger

	inflight atomic.Bool

	mu          sync.RWMutex
	data        *readings.Payload
	streak      int
	lastSuccess time.Time

	onCycle func(err error)
}

// New creates a poller. The interval is assumed to be clamped by the config
// layer. The bus may be nil when nothing consumes snapshots.
func New(fetcher Fetcher, interval time.Duration, b *bus.Bus, logger *logrus.Logger) *Poller {
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		bus:      b,
		logger:   logger,
	}
}

// SetOnCycle installs a hook invoked after every completed cycle (success or
// failure). Coalesced refreshes do not trigger it. Must be set before Run.
func (p *Poller) SetOnCycle(fn func(err error)) { p.onCycle = fn }

// Refresh runs one cycle now and waits for it: fetch, then atomically replace
// the cached payload on success or retain it on failure. Returns ErrInFlight
// when another cycle is already running.
func (p *Poller) Refresh(ctx context.Context) error {
	if !p.inflight.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	defer p.inflight.Store(false)

	payload, err := p.fetcher.Fetch(ctx)
	if p.onCycle != nil {
		defer func() { p.onCycle(err) }()
	}
	if err != nil {
		p.mu.Lock()
		p.streak++
		streak := p.streak
		p.mu.Unlock()
		p.logger.WithError(err).WithField("failure_streak", streak).Warn("Poll cycle failed, keeping last-known-good data")
		return err
	}

	p.mu.Lock()
	p.data = payload
	p.streak = 0
	p.lastSuccess = payload.FetchedAt()
	p.mu.Unlock()

	if p.bus != nil {
		p.bus.Publish(payload)
	}
	p.logger.WithField("sensors", len(readings.Normalize(payload))).Debug("Poll cycle succeeded")
	return nil
}

// Run ticks the fetch cycle until ctx is cancelled. Ticks that fire while a
// cycle is still in flight are skipped. Failures are logged and never stop
// the schedule.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.Refresh(ctx); errors.Is(err, ErrInFlight) {
				p.logger.Debug("Previous cycle still in flight, tick skipped")
			}
		}
	}
}

// Data returns the last successfully cached payload, nil before the first
// successful cycle.
func (p *Poller) Data() *readings.Payload {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.data
}

// Healthy reports whether sensor views should be considered live: at least
// one payload has been cached and the failure streak is below the threshold.
func (p *Poller) Healthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.data != nil && p.streak < unhealthyAfter
}

// FailureStreak returns the number of consecutive failed cycles.
func (p *Poller) FailureStreak() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.streak
}

// LastSuccess returns the fetch time of the cached payload, zero before the
// first successful cycle.
func (p *Poller) LastSuccess() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSuccess
}

// Interval returns the configured poll cadence.
func (p *Poller) Interval() time.Duration { return p.interval }
