// Package watch rebuilds the bundle when source files change.
package watch

import (
	"sync"
	"time"
)

// MaxPending is the number of distinct changed paths that forces an
// immediate flush instead of waiting for the window to expire.
const MaxPending = 1000

// Debouncer coalesces bursts of file events into one batch of paths.
// Editors and formatters often write several files within milliseconds and
// each burst should cost a single rebuild.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	window  time.Duration
	onFlush func(paths []string)
	stopped bool
}

// NewDebouncer creates a debouncer that calls onFlush with the changed
// paths once window has passed without a new event.
func NewDebouncer(window time.Duration, onFlush func(paths []string)) *Debouncer {
	return &Debouncer{
		pending: make(map[string]struct{}),
		window:  window,
		onFlush: onFlush,
	}
}

// Add records a change to path and restarts the window.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending[path] = struct{}{}

	if len(d.pending) >= MaxPending {
		if d.timer != nil {
			d.timer.Stop()
			d.timer = nil
		}
		d.flushLocked()
		return
	}

	// Stop may lose the race with a timer that already fired. The queued
	// flush then finds nothing pending or takes this path early, both fine.
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushLocked()
}

// flushLocked hands the pending paths to onFlush. Caller must hold d.mu;
// the lock is released around the callback.
func (d *Debouncer) flushLocked() {
	if d.stopped || len(d.pending) == 0 {
		return
	}
	paths := d.takeLocked()

	d.mu.Unlock()
	if d.onFlush != nil {
		d.onFlush(paths)
	}
	d.mu.Lock()
}

func (d *Debouncer) takeLocked() []string {
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	return paths
}

// FlushNow delivers pending paths without waiting for the timer.
func (d *Debouncer) FlushNow() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	paths := d.takeLocked()
	d.mu.Unlock()

	if d.onFlush != nil {
		d.onFlush(paths)
	}
}

// Stop stops the debouncer after flushing whatever is pending. Later Add
// calls are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	paths := d.takeLocked()
	d.mu.Unlock()

	if len(paths) > 0 && d.onFlush != nil {
		d.onFlush(paths)
	}
}

// PendingCount returns the number of paths waiting to be flushed.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
