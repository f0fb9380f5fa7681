// Package watchdog implements the tracker's heartbeat registry (spec §5):
// each application thread registers a heartbeat; missing heartbeats for
// wdg_timeout triggers a reset. On real hardware the reset is a watchdog-
// pin toggle followed by a reboot; on a test host it is an injectable
// callback so the behavior can be exercised without actually exiting.
package watchdog

import (
	"sync"
	"time"
)

// ResetFunc is called when a registered thread misses its heartbeat
// deadline. reason names the thread that timed out.
type ResetFunc func(reason string)

// Watchdog tracks one deadline timer per registered thread name. Register
// must be called once per thread before Heartbeat is ever invoked for it.
type Watchdog struct {
	mu      sync.Mutex
	timeout time.Duration
	reset   ResetFunc
	timers  map[string]*time.Timer
	stopped bool
}

// New creates a Watchdog with the given per-thread timeout. reset is called
// (from the timer's own goroutine) each time a registered thread's timer
// fires; if reset is nil, a fired timer is silently ignored (useful
// in tests that only want to assert registration/heartbeat bookkeeping).
func New(timeout time.Duration, reset ResetFunc) *Watchdog {
	return &Watchdog{
		timeout: timeout,
		reset:   reset,
		timers:  make(map[string]*time.Timer),
	}
}

// Register arms a deadline timer for thread, replacing any existing one.
func (w *Watchdog) Register(thread string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.timers[thread]; ok {
		t.Stop()
	}
	w.timers[thread] = time.AfterFunc(w.timeout, func() { w.fire(thread) })
}

// Heartbeat resets thread's deadline timer. It is safe to call from any
// goroutine and matches the internal/threads.Heartbeat function signature.
func (w *Watchdog) Heartbeat(thread string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	t, ok := w.timers[thread]
	if !ok {
		t = time.AfterFunc(w.timeout, func() { w.fire(thread) })
		w.timers[thread] = t
		return
	}
	t.Reset(w.timeout)
}

func (w *Watchdog) fire(thread string) {
	w.mu.Lock()
	reset := w.reset
	w.mu.Unlock()
	if reset != nil {
		reset(thread)
	}
}

// Stop disarms every registered timer. After Stop, Register/Heartbeat are
// no-ops.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	for _, t := range w.timers {
		t.Stop()
	}
}
