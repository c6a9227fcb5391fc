package thumbnail

import (
	"sync"
	"time"
)

// Debouncer hands out a generation per range mutation. Only the newest
// generation is ever considered settled, so a timer armed for an older
// mutation is a no-op when it fires.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
}

// NewDebouncer returns a debouncer waiting delay (DefaultDebounce if <= 0).
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Delay returns the settle delay.
func (d *Debouncer) Delay() time.Duration { return d.delay }

// Touch records a mutation and returns its generation.
func (d *Debouncer) Touch() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	return d.gen
}

// Current returns the latest generation.
func (d *Debouncer) Current() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

// Settled reports whether gen is still the latest generation.
func (d *Debouncer) Settled(gen uint64) bool {
	return gen == d.Current()
}

// Schedule touches and arms a timer that calls fire with the new generation
// after the delay. A pending timer from an earlier call is stopped.
func (d *Debouncer) Schedule(fire func(gen uint64)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { fire(gen) })
	return gen
}

// Stop cancels a pending timer.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
