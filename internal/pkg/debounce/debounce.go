package debounce

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of Trigger calls into one call of fn, delay after the
// last Trigger.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	stopped    bool
}

// New creates a Debouncer. A non-positive delay runs fn synchronously on Trigger.
func New(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{
		delay: delay,
		fn:    fn,
	}
}

// Trigger (re)arms the timer.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.generation++

	if d.delay <= 0 {
		d.mu.Unlock()
		d.fn()
		return
	}

	gen := d.generation
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
	d.mu.Unlock()
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.generation {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}

// Flush runs a pending call immediately. It reports whether one was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.stopped || d.timer == nil {
		d.mu.Unlock()
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.generation++
	d.mu.Unlock()

	d.fn()
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any pending call. Later Triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.generation++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
