package listing

import (
	"sync"
	"time"
)

// Debouncer runs only the last call of a burst, once the burst has been
// quiet for the configured wait.
type Debouncer struct {
	wait  time.Duration
	mu    sync.Mutex
	timer *time.Timer
}

func NewDebouncer(wait time.Duration) *Debouncer {
	return &Debouncer{wait: wait}
}

// Trigger schedules fn, replacing any call still waiting.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, fn)
}

// Cancel drops the waiting call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
