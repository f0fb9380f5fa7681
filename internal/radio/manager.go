package radio

import (
	"container/list"
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"aprsballoon/internal/config"
	"aprsballoon/internal/datapoint"
	"aprsballoon/internal/errs"
	"aprsballoon/internal/geofence"
	"aprsballoon/internal/packetpool"
)

// Priority orders RadioTasks competing for the shared transceiver. Lower
// value wins, matching spec §4.6: "incoming-ack > digipeat > beacon > image".
type Priority int

const (
	PriorityAck Priority = iota
	PriorityDigipeat
	PriorityBeacon
	PriorityImage
	numPriorities
)

// RadioTask is a request to transmit one AX.25 frame body (address, control,
// PID and info; FCS is appended by the manager, not the caller).
type RadioTask struct {
	Body        []byte
	Freq        geofence.Frequency
	Power       byte
	Modulation  Modulation
	CCAThreshold int // dBm; 0 disables CCA
	PreambleLen int
	Priority    Priority

	// Packet, if set, is the pool-owned buffer (C8) backing Body. The
	// Manager releases it exactly once, at whatever point the task's
	// outcome is finally decided (success, hardware failure, CCA
	// exhaustion, or pre-PREP cancellation) — callers must not also
	// release it themselves once Submit has been called.
	Packet *packetpool.Packet

	ctx  context.Context
	done chan error
}

// release returns task's pool packet, if any, exactly once.
func (task *RadioTask) release() {
	if task.Packet != nil {
		task.Packet.Release()
		task.Packet = nil
	}
}

// LatestFunc returns the most recently published dataPoint, used to resolve
// Dynamic frequency descriptors (geofence.Policy.Resolve's dp argument).
type LatestFunc func() datapoint.DataPoint

// Manager is the Radio Manager (C6): sole owner of the Transceiver, serving
// a strict-priority FIFO queue of RadioTasks through the RX_IDLE -> PREP ->
// TX_PREAMBLE -> TX_DATA -> TAIL -> RX_IDLE state machine. Grounded on the
// teacher's register-bring-up/interrupt-worker idiom (kept inside Chip) with
// the queueing/backoff/CCA loop added per spec §4.6, which tve-devices never
// needed because it never shares one transceiver across competing callers.
type Manager struct {
	tc     Transceiver
	policy *geofence.Policy
	latest LatestFunc
	cfg    config.RadioConfig
	log    func(string, ...interface{})

	mu       sync.Mutex
	queues   [numPriorities]*list.List
	notify   chan struct{}
	stopCh   chan struct{}
	wg       sync.WaitGroup

	lastRxFreq geofence.Hz
}

// New builds a Manager around tc, dialing frequencies through policy and
// reading the live dataPoint through latest.
func New(tc Transceiver, policy *geofence.Policy, latest LatestFunc, cfg config.RadioConfig, log func(string, ...interface{})) *Manager {
	if log == nil {
		log = func(string, ...interface{}) {}
	}
	m := &Manager{
		tc: tc, policy: policy, latest: latest, cfg: cfg, log: log,
		notify: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
	for i := range m.queues {
		m.queues[i] = list.New()
	}
	return m
}

// Run drives the priority queue until Stop is called. It should be run in
// its own goroutine, exactly as tve-devices runs sx1231's worker().
func (m *Manager) Run() {
	m.wg.Add(1)
	defer m.wg.Done()
	for {
		task := m.dequeue()
		if task == nil {
			select {
			case <-m.stopCh:
				return
			case <-m.notify:
				continue
			}
		}
		m.execute(task)
	}
}

// Stop halts Run after the in-flight task (if any) completes.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

// Submit enqueues task and blocks until it completes, is cancelled via ctx,
// or ctx's deadline (defaulting to cfg.TaskTimeout) expires. A task may be
// cancelled any time before PREP begins; once PREP starts the transmission
// runs to completion regardless of ctx (spec §4.6 cancellation contract).
func (m *Manager) Submit(ctx context.Context, task RadioTask) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		timeout := m.cfg.TaskTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	task.ctx = ctx
	task.done = make(chan error, 1)

	m.mu.Lock()
	m.queues[task.Priority].PushBack(&task)
	m.mu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}

	select {
	case err := <-task.done:
		return err
	case <-ctx.Done():
		return m.cancelIfQueued(&task, ctx.Err())
	}
}

// cancelIfQueued removes task from its queue if execute hasn't claimed it
// yet (still pre-PREP); otherwise it waits for the in-flight result, which
// is allowed to outlive the caller's deadline per spec §4.6.
func (m *Manager) cancelIfQueued(task *RadioTask, ctxErr error) error {
	m.mu.Lock()
	q := m.queues[task.Priority]
	for e := q.Front(); e != nil; e = e.Next() {
		if e.Value.(*RadioTask) == task {
			q.Remove(e)
			m.mu.Unlock()
			task.release()
			if errors.Is(ctxErr, context.Canceled) {
				return errs.ErrTaskCancelled
			}
			return errs.ErrTaskTimeout
		}
	}
	m.mu.Unlock()
	return <-task.done
}

// dequeue pops the highest-priority queued task, or nil if all queues are
// empty.
func (m *Manager) dequeue() *RadioTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.queues {
		if e := q.Front(); e != nil {
			q.Remove(e)
			return e.Value.(*RadioTask)
		}
	}
	return nil
}

// execute runs one task through the PREP -> TX_PREAMBLE -> TX_DATA -> TAIL
// state machine and reports the outcome on task.done.
func (m *Manager) execute(task *RadioTask) {
	select {
	case <-task.ctx.Done():
		task.release()
		task.done <- errs.ErrTaskCancelled
		return
	default:
	}

	// execute is a straight-line pass through PREP -> TX_PREAMBLE -> TX_DATA
	// -> TAIL (spec §4.6): each step either succeeds or fails fast, except
	// the CCA retry loop in clearChannel.
	dp := datapoint.DataPoint{}
	if m.latest != nil {
		dp = m.latest()
	}
	hz := m.policy.Resolve(task.Freq, dp)

	if err := m.tc.SetFrequency(uint32(hz)); err != nil {
		m.fail(task, err)
		return
	}
	if err := m.tc.SetPower(task.Power); err != nil {
		m.fail(task, err)
		return
	}
	if err := m.tc.SetModulation(task.Modulation); err != nil {
		m.fail(task, err)
		return
	}

	if task.CCAThreshold != 0 {
		if err := m.clearChannel(task); err != nil {
			task.release()
			task.done <- err
			return
		}
	}

	framed := encodeFrame(task.Body, task.Modulation, task.PreambleLen)
	if err := m.tc.Send(framed); err != nil {
		m.fail(task, err)
		return
	}

	// Return to RX on the last receive frequency; before any is known, stay
	// on the frequency just used.
	if m.lastRxFreq == 0 {
		m.lastRxFreq = hz
	}
	m.tc.SetFrequency(uint32(m.lastRxFreq))
	m.lastRxFreq = hz
	task.release()
	task.done <- nil
}

// clearChannel implements CCA: sample RSSI, and if above threshold back off
// a randomized 50-500ms and retry up to cfg.CCARetries times before
// surfacing ErrChannelBusy, per spec §4.6 step 3.
func (m *Manager) clearChannel(task *RadioTask) error {
	retries := m.cfg.CCARetries
	if retries <= 0 {
		retries = 5
	}
	for attempt := 0; attempt <= retries; attempt++ {
		rssi, err := m.tc.RSSI()
		if err != nil {
			return err
		}
		if rssi <= task.CCAThreshold {
			return nil
		}
		if attempt == retries {
			break
		}
		backoff := time.Duration(50+rand.Intn(450)) * time.Millisecond
		select {
		case <-time.After(backoff):
		case <-task.ctx.Done():
			return errs.ErrTaskCancelled
		}
	}
	return errs.ErrChannelBusy
}

// fail records a hardware error and resets the transceiver driver, per spec
// §4.6's "hard error -> reset driver" transition back to RX_IDLE.
func (m *Manager) fail(task *RadioTask, err error) {
	m.log("radio manager: hardware error, resetting: %v", err)
	m.tc.Reset()
	task.release()
	task.done <- errs.ErrRadioHardware
}

// Recv exposes the transceiver's receive channel for a decode thread,
// started once by whatever wires this Manager up (spec §4.4's dispatcher).
func (m *Manager) Recv() <-chan RxFrame { return m.tc.Recv() }
