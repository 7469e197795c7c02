package watch

import (
	"sync"
	"time"
)

// debouncer coalesces bursts of notifications per path; only the callback of
// the last trigger in a burst runs.
type debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
	fns    map[string]func()
	done   bool
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:  delay,
		timers: make(map[string]*time.Timer),
		fns:    make(map[string]func()),
	}
}

// trigger schedules fn for key after the debounce delay, replacing any
// callback already pending for key.
func (d *debouncer) trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.done {
		return
	}

	d.fns[key] = fn

	if timer, ok := d.timers[key]; ok {
		timer.Reset(d.delay)
		return
	}

	d.timers[key] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		cb := d.fns[key]
		delete(d.fns, key)
		delete(d.timers, key)
		done := d.done
		d.mu.Unlock()

		if cb != nil && !done {
			cb()
		}
	})
}

// stop cancels every pending callback
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.done = true
	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
	d.fns = make(map[string]func())
}
