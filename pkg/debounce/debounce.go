// Package debounce coalesces bursts of triggers into a single call that runs
// once a quiet window has elapsed.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs fn after Wait has passed without a new Trigger. If MaxWait is
// set, a continuous burst still fires no later than MaxWait after its first trigger.
//
// Trigger restarts the quiet window, Cancel drops a pending call and Stop
// disables the debouncer for good. All methods are safe for concurrent use and
// Cancel/Stop may be called any number of times, including after fn fired.
type Debouncer struct {
	wait    time.Duration
	maxWait time.Duration
	fn      func()

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	firstAt    time.Time
	pending    bool
	stopped    bool
}

// New returns a debouncer calling fn. maxWait <= 0 disables the cap.
func New(wait, maxWait time.Duration, fn func()) *Debouncer {
	return &Debouncer{
		wait:    wait,
		maxWait: maxWait,
		fn:      fn,
	}
}

// Trigger (re)starts the quiet window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	now := time.Now()
	if !d.pending {
		d.pending = true
		d.firstAt = now
	}

	delay := d.wait
	if d.maxWait > 0 {
		if left := d.firstAt.Add(d.maxWait).Sub(now); left < delay {
			delay = max(left, 0)
		}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	gen := d.generation
	d.timer = time.AfterFunc(delay, func() { d.fire(gen) })
}

// fire runs fn unless the call was superseded or cancelled meanwhile.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || !d.pending || gen != d.generation {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}

// Flush runs a pending call immediately. It reports whether anything was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.stopped || !d.pending {
		d.mu.Unlock()
		return false
	}
	d.clearLocked()
	d.mu.Unlock()

	d.fn()
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Cancel drops a pending call. Later triggers schedule again.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearLocked()
}

// Stop cancels and disables the debouncer.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearLocked()
	d.stopped = true
}

func (d *Debouncer) clearLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	// invalidates a callback that already left the timer but has not taken the lock yet
	d.generation++
	d.pending = false
}
