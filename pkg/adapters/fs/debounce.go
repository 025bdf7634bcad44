package fs

import (
	"sync"
	"time"

	"github.com/cdhutch/cnsf/pkg/core"
)

// debouncer delivers only the last event seen for a note within delay.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:  delay,
		timers: make(map[string]*time.Timer),
	}
}

func (d *debouncer) add(e core.Event, fire func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if prev, ok := d.timers[e.ID]; ok && prev.Stop() {
		d.wg.Done()
	}

	d.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		if d.timers[e.ID] == timer {
			delete(d.timers, e.ID)
		}
		d.mu.Unlock()
		fire(e)
	})
	d.timers[e.ID] = timer
}

// stopAndWait drops pending events and waits up to timeout for in-flight
// deliveries to return.
func (d *debouncer) stopAndWait(timeout time.Duration) bool {
	d.mu.Lock()
	d.stopped = true
	for id, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, id)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
