package entity

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of Notify calls into one call of fn after delay has
// passed without a new Notify. At most one timer is armed; Close stops it for good.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	closed  bool
}

func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	if delay < 0 {
		delay = 0
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Notify (re)starts the quiet period.
func (d *Debouncer) Notify() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifyLocked()
}

// notifyLocked arms a timer tagged with a fresh generation. A timer that already
// fired and is waiting for the lock carries an older generation and does nothing.
func (d *Debouncer) notifyLocked() {
	if d.closed {
		return
	}
	d.pending = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.onTimer(gen) })
}

// Pending reports whether a call is scheduled but has not fired yet.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending && !d.closed
}

func (d *Debouncer) onTimer(gen uint64) {
	d.mu.Lock()
	if d.closed || !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()

	d.fn()
}

// Close cancels a pending call; fn never runs after Close returns unless it had
// already started.
func (d *Debouncer) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
}
