package threads

import (
	"context"
	"sync"
)

// Runnable is satisfied by every application thread (Beacon, Image,
// LogThread, Dispatcher): a single blocking Run that honors ctx
// cancellation.
type Runnable interface {
	Run(ctx context.Context)
}

// Registry starts and stops the tracker's application threads as a group,
// following cmd/mqttradio/main.go's pattern of spawning one goroutine per
// module and waiting on all of them at shutdown.
type Registry struct {
	threads []Runnable
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Add registers a thread to be started by Start.
func (r *Registry) Add(t Runnable) {
	r.threads = append(r.threads, t)
}

// Start launches every registered thread in its own goroutine.
func (r *Registry) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	for _, t := range r.threads {
		t := t
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			t.Run(ctx)
		}()
	}
}

// Stop cancels every thread's context and waits for them to return.
func (r *Registry) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}
