// Package countdown implements the shift countdown: a periodic stream of
// remaining-seconds values for an absolute end timestamp. Pure timing
// primitive — no persistence, no network.
package countdown

import (
	"sync"
	"time"
)

// Driver emits remaining seconds once per interval until the end timestamp
// passes, then emits a final 0 and terminates.
//
// Lifecycle: Start -> [emit, emit, ...] -> 0 -> done. Start while a run is
// active stops the previous run first — at most one active run per Driver.
// Stop is unconditional: after Stop returns, no emission is delivered, even
// one already scheduled (emission and Stop serialize on the same mutex, and
// emission re-checks the stop channel under it).
type Driver struct {
	mu       sync.Mutex
	interval time.Duration
	now      func() time.Time
	stop     chan struct{}
	running  bool
	wg       sync.WaitGroup
}

// New creates a Driver with a 1-second tick.
func New() *Driver {
	return &Driver{interval: time.Second, now: time.Now}
}

// NewWithClock creates a Driver with an injected clock and tick interval (tests).
func NewWithClock(now func() time.Time, interval time.Duration) *Driver {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Driver{interval: interval, now: now}
}

// Start begins a countdown to end, delivering values through emit.
// The first value is delivered synchronously-soon (before the first interval
// elapses); values are never negative. A previous run, if any, is stopped first.
func (d *Driver) Start(end time.Time, emit func(remaining int64)) {
	d.mu.Lock()
	d.stopLocked()
	stop := make(chan struct{})
	d.stop = stop
	d.running = true
	d.mu.Unlock()

	d.wg.Add(1)
	go d.run(end, emit, stop)
}

// Stop cancels the active run. Idempotent; safe from any goroutine.
func (d *Driver) Stop() {
	d.mu.Lock()
	d.stopLocked()
	d.mu.Unlock()
}

// Wait blocks until the current run goroutine has exited (tests, teardown).
func (d *Driver) Wait() {
	d.wg.Wait()
}

func (d *Driver) stopLocked() {
	if d.running {
		close(d.stop)
		d.running = false
	}
}

func (d *Driver) run(end time.Time, emit func(int64), stop chan struct{}) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		remaining := d.remaining(end)
		if !d.deliver(stop, emit, remaining) {
			return
		}
		if remaining == 0 {
			d.finish(stop)
			return
		}
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func (d *Driver) remaining(end time.Time) int64 {
	ms := end.Sub(d.now()).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return ms / 1000
}

// deliver emits under the mutex, re-checking the stop channel so that a value
// scheduled before Stop is never observed after it.
func (d *Driver) deliver(stop chan struct{}, emit func(int64), remaining int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	select {
	case <-stop:
		return false
	default:
	}
	emit(remaining)
	return true
}

// finish marks a naturally-completed run as no longer running.
func (d *Driver) finish(stop chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running && d.stop == stop {
		close(d.stop)
		d.running = false
	}
}
