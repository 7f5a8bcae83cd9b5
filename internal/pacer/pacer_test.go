package pacer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestWait_CompletesInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := New(3*time.Second, WithClock(clock))

	done := make(chan error, 1)
	go func() {
		done <- p.Wait(context.Background())
	}()

	for i := 0; i < 3; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Second)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return after full interval elapsed")
	}
}

func TestWait_CancelledMidInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := New(10*time.Second, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- p.Wait(ctx)
	}()

	// Let the first one-second timer arm, then cancel. Wait must return
	// without the remaining nine seconds ever elapsing.
	clock.BlockUntil(1)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Wait() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not observe cancellation")
	}
}

func TestWait_ZeroInterval(t *testing.T) {
	p := New(0)

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestWait_SubTickInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := New(300*time.Millisecond, WithClock(clock))

	done := make(chan error, 1)
	go func() {
		done <- p.Wait(context.Background())
	}()

	clock.BlockUntil(1)
	clock.Advance(300 * time.Millisecond)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return for sub-tick interval")
	}
}

func TestWait_TickCallback(t *testing.T) {
	clock := clockwork.NewFakeClock()

	ticks := make(chan time.Duration, 3)
	p := New(3*time.Second, WithClock(clock), WithTickFunc(func(remaining time.Duration) {
		ticks <- remaining
	}))

	done := make(chan error, 1)
	go func() {
		done <- p.Wait(context.Background())
	}()

	want := []time.Duration{2 * time.Second, time.Second, 0}
	for i := 0; i < 3; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Second)

		select {
		case got := <-ticks:
			if got != want[i] {
				t.Fatalf("tick %d remaining = %v, want %v", i, got, want[i])
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d never fired", i)
		}
	}

	if err := <-done; err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}
