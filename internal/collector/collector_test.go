package collector

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"aprsballoon/internal/config"
	"aprsballoon/internal/datapoint"
	"aprsballoon/internal/logring"
)

func newTestRing(t *testing.T) *logring.Ring {
	t.Helper()
	r, err := logring.Open(filepath.Join(t.TempDir(), "log.bin"), 8)
	if err != nil {
		t.Fatalf("logring.Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRequestSnapshotPublishesAndIncrementsID(t *testing.T) {
	ring := newTestRing(t)
	cfg := config.Defaults().GPS
	c := New(cfg, Sensors{}, ring, 0, time.Now(), nil)
	go c.Run()
	defer c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	first, err := c.RequestSnapshot(ctx, false)
	if err != nil {
		t.Fatalf("RequestSnapshot: %v", err)
	}
	second, err := c.RequestSnapshot(ctx, false)
	if err != nil {
		t.Fatalf("RequestSnapshot: %v", err)
	}
	if second.ID != first.ID+1 {
		t.Fatalf("ID did not increase monotonically: %d -> %d", first.ID, second.ID)
	}
	if second.SysTime < first.SysTime {
		t.Fatalf("sys_time went backwards: %d -> %d", first.SysTime, second.SysTime)
	}
}

func TestRequestSnapshotWithoutGPSReportsOff(t *testing.T) {
	ring := newTestRing(t)
	cfg := config.Defaults().GPS
	c := New(cfg, Sensors{}, ring, 0, time.Now(), nil)
	go c.Run()
	defer c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	dp, err := c.RequestSnapshot(ctx, false)
	if err != nil {
		t.Fatalf("RequestSnapshot: %v", err)
	}
	if dp.GPSState != datapoint.GPSOff {
		t.Fatalf("GPSState = %v, want GPSOff when GPS not requested", dp.GPSState)
	}
}

func TestWaitNewUnblocksOnNextSnapshot(t *testing.T) {
	ring := newTestRing(t)
	cfg := config.Defaults().GPS
	c := New(cfg, Sensors{}, ring, 0, time.Now(), nil)
	go c.Run()
	defer c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan datapoint.DataPoint, 1)
	go func() {
		dp, err := c.WaitNew(ctx)
		if err == nil {
			done <- dp
		}
	}()

	time.Sleep(10 * time.Millisecond)
	if _, err := c.RequestSnapshot(ctx, false); err != nil {
		t.Fatalf("RequestSnapshot: %v", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("WaitNew did not unblock after a new snapshot was published")
	}
}

func TestGetLogReadsAppendedRecords(t *testing.T) {
	ring := newTestRing(t)
	cfg := config.Defaults().GPS
	c := New(cfg, Sensors{}, ring, 0, time.Now(), nil)
	go c.Run()
	defer c.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := c.RequestSnapshot(ctx, false); err != nil {
		t.Fatalf("RequestSnapshot: %v", err)
	}
	dp, err := c.GetLog(0)
	if err != nil {
		t.Fatalf("GetLog(0): %v", err)
	}
	if dp.ID == 0 && dp.SysTime == 0 {
		// still a reasonable record as long as no error; nothing further to assert
		_ = dp
	}
}
