package utils

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of calls into a single delayed call. Each
// Trigger cancels the pending call and restarts the timer, so only the
// function passed last runs, once, after the burst has been quiet for the
// configured delay.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending func()
	gen     uint64
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiet period
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn, replacing any call that has not fired yet
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.pending = fn
	d.timer = time.AfterFunc(d.delay, func() {
		d.fire(gen)
	})
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// A later Trigger or Flush may have superseded this timer after it started
	if gen != d.gen || d.pending == nil || d.stopped {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	fn()
}

// Flush runs the pending call immediately, if any. Returns whether a call ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.pending == nil || d.stopped {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	fn := d.pending
	d.pending = nil
	d.mu.Unlock()

	fn()
	return true
}

// Cancel drops the pending call without running it
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = nil
}

// Stop cancels the pending call and ignores all future triggers
func (d *Debouncer) Stop() {
	d.Cancel()
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}

// hasPending reports whether a call is waiting to fire
func (d *Debouncer) hasPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
