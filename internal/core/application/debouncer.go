package application

import (
	"sync"
	"time"
)

// debouncer coalesces bursts of same-key triggers into a single downstream
// call, fired debounceWindow after the last trigger for that key. The host
// chain's change-notification stream can fire many times for one block; we
// only want to react once per settled key.
type debouncer struct {
	window time.Duration
	fire   func(key string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newDebouncer(window time.Duration, fire func(key string)) *debouncer {
	return &debouncer{
		window: window,
		fire:   fire,
		timers: make(map[string]*time.Timer),
	}
}

// Trigger (re)starts the window for key. Only the last trigger within the
// window results in a call to fire.
func (d *debouncer) Trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		d.fire(key)
	})
}

// Stop cancels every pending timer without firing it.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.timers {
		t.Stop()
	}
	d.timers = make(map[string]*time.Timer)
}
