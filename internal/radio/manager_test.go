package radio

import (
	"context"
	"testing"
	"time"

	"aprsballoon/internal/config"
	"aprsballoon/internal/datapoint"
	"aprsballoon/internal/errs"
	"aprsballoon/internal/geofence"
	"aprsballoon/internal/packetpool"
)

func testManager(t *testing.T, fc *FakeChip) *Manager {
	t.Helper()
	cfg := config.Defaults().Radio
	cfg.TaskTimeout = 2 * time.Second
	m := New(fc, geofence.Load("/nonexistent"), func() datapoint.DataPoint { return datapoint.DataPoint{} }, cfg, nil)
	go m.Run()
	t.Cleanup(m.Stop)
	return m
}

func TestSubmitTransmitsAndReportsSuccess(t *testing.T) {
	fc := NewFakeChip(-120)
	m := testManager(t, fc)

	task := RadioTask{
		Body:        []byte("hello"),
		Freq:        geofence.Frequency{Kind: geofence.Static, Fixed: 144390000},
		Power:       20,
		Modulation:  ModAFSK1200,
		Priority:    PriorityBeacon,
	}
	if err := m.Submit(context.Background(), task); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(fc.Sent) != 1 {
		t.Fatalf("expected 1 transmitted frame, got %d", len(fc.Sent))
	}
	if fc.Freq != 144390000 {
		t.Fatalf("Freq = %d, want 144390000", fc.Freq)
	}
}

func TestSubmitChannelBusyExhaustsRetries(t *testing.T) {
	fc := NewFakeChip(-10) // well above any sane CCA threshold
	m := testManager(t, fc)

	task := RadioTask{
		Body:         []byte("hello"),
		Freq:         geofence.Frequency{Kind: geofence.Static, Fixed: 144390000},
		Power:        20,
		Modulation:   ModAFSK1200,
		CCAThreshold: -90,
		Priority:     PriorityBeacon,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.Submit(ctx, task)
	if err != errs.ErrChannelBusy {
		t.Fatalf("Submit: got %v, want ErrChannelBusy", err)
	}
	if len(fc.Sent) != 0 {
		t.Fatalf("expected no frame sent when channel stays busy")
	}
}

func TestSubmitPriorityOrdering(t *testing.T) {
	fc := NewFakeChip(-120)
	cfg := config.Defaults().Radio
	m := New(fc, geofence.Load("/nonexistent"), func() datapoint.DataPoint { return datapoint.DataPoint{} }, cfg, nil)
	// Queue tasks directly without starting Run, so ordering can be observed
	// deterministically before execute() drains them.
	low := RadioTask{Body: []byte("image"), Modulation: ModAFSK1200, Priority: PriorityImage, ctx: context.Background(), done: make(chan error, 1)}
	high := RadioTask{Body: []byte("ack"), Modulation: ModAFSK1200, Priority: PriorityAck, ctx: context.Background(), done: make(chan error, 1)}
	m.mu.Lock()
	m.queues[low.Priority].PushBack(&low)
	m.queues[high.Priority].PushBack(&high)
	m.mu.Unlock()

	first := m.dequeue()
	if first.Priority != PriorityAck {
		t.Fatalf("expected ack task dequeued first, got priority %d", first.Priority)
	}
	second := m.dequeue()
	if second.Priority != PriorityImage {
		t.Fatalf("expected image task dequeued second, got priority %d", second.Priority)
	}
}

func TestSubmitReleasesPoolPacketOnSuccess(t *testing.T) {
	fc := NewFakeChip(-120)
	m := testManager(t, fc)
	pool := packetpool.New(1)

	pk, err := pool.Get()
	if err != nil {
		t.Fatalf("pool.Get: %v", err)
	}
	n := copy(pk.Data[:], []byte("hello"))
	pk.Len = n

	task := RadioTask{
		Body:       pk.Data[:n],
		Packet:     pk,
		Freq:       geofence.Frequency{Kind: geofence.Static, Fixed: 144390000},
		Modulation: ModAFSK1200,
		Priority:   PriorityBeacon,
	}
	if err := m.Submit(context.Background(), task); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := pool.Get(); err != nil {
		t.Fatalf("expected packet to have been released back to the pool: %v", err)
	}
	if pool.Exhausted() != 0 {
		t.Fatalf("pool reported exhaustion, packet was not released")
	}
}

func TestSubmitHardwareErrorResetsAndReports(t *testing.T) {
	fc := NewFakeChip(-120)
	m := testManager(t, fc)
	fc.FailNext(errs.ErrRadioHardware)

	task := RadioTask{
		Body:       []byte("hello"),
		Freq:       geofence.Frequency{Kind: geofence.Static, Fixed: 144390000},
		Modulation: ModAFSK1200,
		Priority:   PriorityBeacon,
	}
	err := m.Submit(context.Background(), task)
	if err != errs.ErrRadioHardware {
		t.Fatalf("Submit: got %v, want ErrRadioHardware", err)
	}
}
