// Package threads implements the tracker's five application threads (C7):
// Beacon, Image, Log, Digipeater and Receiver, run as four goroutines
// (Beacon, Image, LogThread, and Dispatcher, which combines the digipeater
// and receiver). Each is an independent goroutine driven by cmd/trackerd, talking to the Collector and Radio
// Manager purely over channels/method calls — matching the teacher's
// one-goroutine-per-concern wiring in cmd/mqttradio/main.go, where
// startRadio and each hookModule call spawn independent workers.
//
// Beacon, Image and LogThread share the same loop shape (spec §4.7): wait for a tick,
// request a snapshot, check an optional sleep condition, compose and
// transmit, emit a trace — factored here into runLoop so each thread only
// supplies the per-cycle behavior that differs.
package threads

import (
	"context"
	"time"

	"aprsballoon/internal/packetpool"
)

// LogPrintf is the tracker-wide injectable logging hook (spec §1 ambient
// stack), matching sx1231.Radio's LogPrintf and internal/collector's.
type LogPrintf func(format string, v ...interface{})

// Heartbeat is called once per completed cycle so a watchdog registry can
// track thread liveness (spec §5's "each application thread registers a
// heartbeat").
type Heartbeat func(thread string)

// runLoop ticks every cycle (or runs back-to-back if cycle <= 0, for
// Continuous-mode threads) and calls fn once per tick until ctx is
// cancelled, reporting a heartbeat after every completed call regardless of
// whether fn returned an error (a failed cycle is not a dead thread).
func runLoop(ctx context.Context, name string, cycle time.Duration, hb Heartbeat, log LogPrintf, fn func(context.Context) error) {
	if hb == nil {
		hb = func(string) {}
	}
	if log == nil {
		log = func(string, ...interface{}) {}
	}
	runOnce := func() {
		if err := fn(ctx); err != nil {
			log("%s: cycle error: %v", name, err)
		}
		hb(name)
	}
	if cycle <= 0 {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				runOnce()
			}
		}
	}
	ticker := time.NewTicker(cycle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// acquirePacket borrows a buffer from pool (C8) and copies body into it,
// returning the pool packet alongside a slice view of its filled prefix. If
// pool is nil, body is handed back unmodified and the returned packet is
// nil — tests and any caller not wired to a pool fall back to plain Go
// slices. A pool-exhausted Get is not retried: spec §4.2 calls for the
// lowest-priority caller to drop its send rather than block.
func acquirePacket(pool *packetpool.Pool, body []byte) (*packetpool.Packet, []byte, error) {
	if pool == nil {
		return nil, body, nil
	}
	pk, err := pool.Get()
	if err != nil {
		return nil, nil, err
	}
	n := copy(pk.Data[:], body)
	pk.Len = n
	return pk, pk.Data[:n], nil
}
