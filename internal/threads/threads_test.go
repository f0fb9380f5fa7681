package threads

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"aprsballoon/internal/ax25"
	"aprsballoon/internal/collector"
	"aprsballoon/internal/config"
	"aprsballoon/internal/geofence"
	"aprsballoon/internal/logring"
	"aprsballoon/internal/radio"
	"aprsballoon/internal/ssdv"
)

func mustCall(t *testing.T, s string) ax25.Callsign {
	t.Helper()
	c, err := ax25.ParseCallsign(s)
	if err != nil {
		t.Fatalf("ParseCallsign(%q): %v", s, err)
	}
	return c
}

func newTestCollector(t *testing.T) *collector.Collector {
	t.Helper()
	ring, err := logring.Open(filepath.Join(t.TempDir(), "log.bin"), 8)
	if err != nil {
		t.Fatalf("logring.Open: %v", err)
	}
	t.Cleanup(func() { ring.Close() })
	c := collector.New(config.Defaults().GPS, collector.Sensors{}, ring, 0, time.Now(), nil)
	go c.Run()
	t.Cleanup(c.Stop)
	return c
}

func newTestManager(t *testing.T) (*radio.Manager, *radio.FakeChip) {
	t.Helper()
	fc := radio.NewFakeChip(-120)
	m := radio.New(fc, geofence.Load("/nonexistent"), nil, config.Defaults().Radio, nil)
	go m.Run()
	t.Cleanup(m.Stop)
	return m, fc
}

func TestBeaconTransmitsPositionAndTelemetry(t *testing.T) {
	col := newTestCollector(t)
	mgr, fc := newTestManager(t)

	b := &Beacon{
		Collector: col,
		Manager:   mgr,
		OurCall:   mustCall(t, "N0CALL-11"),
		Cfg:       config.BeaconConfig{Path: []string{"WIDE1-1"}},
		Freq:      geofence.Frequency{Kind: geofence.Static, Fixed: 144390000},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.cycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if len(fc.Sent) == 0 {
		t.Fatalf("expected at least one transmitted frame")
	}
}

func TestBeaconSkipsOnLowBattery(t *testing.T) {
	col := newTestCollector(t)
	mgr, fc := newTestManager(t)

	b := &Beacon{
		Collector: col,
		Manager:   mgr,
		OurCall:   mustCall(t, "N0CALL-11"),
		Cfg:       config.BeaconConfig{Path: []string{"WIDE1-1"}, SleepVBat: 65000},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.cycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if len(fc.Sent) != 0 {
		t.Fatalf("expected no transmission below sleep_conf threshold, sent %d frames", len(fc.Sent))
	}
}

func TestImageThreadChunksAndTransmits(t *testing.T) {
	mgr, fc := newTestManager(t)
	cam := &ssdv.FakeCamera{JPEG: make([]byte, ssdv.PayloadSize*2+5)}

	im := &Image{
		Manager: mgr,
		Camera:  cam,
		OurCall: mustCall(t, "N0CALL-11"),
		Cfg:     config.ImageConfig{Enabled: true, Width: 640, Height: 480, Quality: 4, Retries: 2},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := im.cycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if len(fc.Sent) != 3 {
		t.Fatalf("expected 3 ssdv packets sent, got %d", len(fc.Sent))
	}
}

func TestLogThreadAdvancesCursor(t *testing.T) {
	col := newTestCollector(t)
	mgr, fc := newTestManager(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := col.RequestSnapshot(ctx, false); err != nil {
		t.Fatalf("RequestSnapshot: %v", err)
	}

	lt := &LogThread{
		Collector: col,
		Manager:   mgr,
		OurCall:   mustCall(t, "N0CALL-11"),
		Cfg:       config.LogConfig{Enabled: true, RecordsPerPkt: 4},
	}
	if err := lt.cycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if lt.cursor == 0 {
		t.Fatalf("expected cursor to advance past 0")
	}
	if len(fc.Sent) != 1 {
		t.Fatalf("expected 1 log packet, got %d", len(fc.Sent))
	}
}
