package watchdog

import (
	"sync"
	"testing"
	"time"
)

func TestHeartbeatPreventsReset(t *testing.T) {
	var mu sync.Mutex
	fired := false
	w := New(50*time.Millisecond, func(string) {
		mu.Lock()
		fired = true
		mu.Unlock()
	})
	defer w.Stop()

	w.Register("beacon")
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		w.Heartbeat("beacon")
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if fired {
		t.Fatalf("reset fired despite regular heartbeats")
	}
}

func TestMissedHeartbeatTriggersReset(t *testing.T) {
	done := make(chan string, 1)
	w := New(20*time.Millisecond, func(reason string) { done <- reason })
	defer w.Stop()

	w.Register("image")

	select {
	case reason := <-done:
		if reason != "image" {
			t.Fatalf("expected reset reason %q, got %q", "image", reason)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("expected reset to fire after missed heartbeat")
	}
}

func TestStopDisarmsTimers(t *testing.T) {
	done := make(chan string, 1)
	w := New(20*time.Millisecond, func(reason string) { done <- reason })
	w.Register("logthread")
	w.Stop()

	select {
	case reason := <-done:
		t.Fatalf("unexpected reset after Stop: %s", reason)
	case <-time.After(100 * time.Millisecond):
	}
}
