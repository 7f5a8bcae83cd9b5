package pacer

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// tick granularity of the interruptible wait. A cancellation request takes
// effect within about one tick instead of waiting out the full interval.
const tick = time.Second

// Pacer serializes ledger-mutating work with a fixed delay between units.
// The sending account's sequence numbers are consumed strictly in order, so
// payments cannot be fanned out; the delay also keeps the submission rate
// acceptable to the network.
type Pacer struct {
	interval time.Duration
	clock    clockwork.Clock
	onTick   func(remaining time.Duration)
}

// Option configures a Pacer
type Option func(*Pacer)

// WithClock injects a clock, used by tests
func WithClock(clock clockwork.Clock) Option {
	return func(p *Pacer) { p.clock = clock }
}

// WithTickFunc registers a callback invoked once per elapsed tick with the
// remaining wait time, for live countdown display.
func WithTickFunc(fn func(remaining time.Duration)) Option {
	return func(p *Pacer) { p.onTick = fn }
}

// New creates a pacer with the given delay between units
func New(interval time.Duration, opts ...Option) *Pacer {
	p := &Pacer{
		interval: interval,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interval returns the configured delay
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait sleeps for the configured interval in one-second ticks. It returns
// ctx.Err() as soon as the context is cancelled, without finishing the
// interval.
func (p *Pacer) Wait(ctx context.Context) error {
	remaining := p.interval
	for remaining > 0 {
		step := tick
		if remaining < step {
			step = remaining
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(step):
		}

		remaining -= step
		if p.onTick != nil {
			p.onTick(remaining)
		}
	}
	return nil
}
