package logring

import (
	"os"
	"path/filepath"
	"testing"

	"aprsballoon/internal/datapoint"
)

func sampleDP(id uint32) datapoint.DataPoint {
	return datapoint.DataPoint{
		ID:       id,
		SysTime:  id * 10,
		GPSState: datapoint.GPSLockedOn,
		GPSLat:   490_000_000,
		GPSLon:   70_000_000,
	}
}

func TestAppendAndReadBack(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(filepath.Join(dir, "log.bin"), 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	for id := uint32(1); id <= 3; id++ {
		if err := r.Append(sampleDP(id)); err != nil {
			t.Fatalf("Append(%d): %v", id, err)
		}
	}
	all := r.All()
	if len(all) != 3 {
		t.Fatalf("All() returned %d records, want 3", len(all))
	}
	for i, dp := range all {
		if dp.ID != uint32(i+1) {
			t.Fatalf("All()[%d].ID = %d, want %d", i, dp.ID, i+1)
		}
	}
	latest, err := r.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != 3 {
		t.Fatalf("Latest().ID = %d, want 3", latest.ID)
	}
}

func TestWrapAroundOverwritesOldest(t *testing.T) {
	dir := t.TempDir()
	r, _ := Open(filepath.Join(dir, "log.bin"), 2)
	defer r.Close()
	for id := uint32(1); id <= 3; id++ {
		if err := r.Append(sampleDP(id)); err != nil {
			t.Fatalf("Append(%d): %v", id, err)
		}
	}
	all := r.All()
	if len(all) != 2 {
		t.Fatalf("All() after wrap returned %d records, want 2", len(all))
	}
	if all[0].ID != 2 || all[1].ID != 3 {
		t.Fatalf("All() after wrap = %+v, want IDs [2 3]", all)
	}
}

func TestTornWriteTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.bin")
	r, err := Open(path, 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := r.Append(sampleDP(1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := r.Append(sampleDP(2)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Simulate a power cut mid-write to slot 0: corrupt a few bytes inside
	// its body without fixing up the CRC, as a torn write would leave it.
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := f.WriteAt([]byte{0xde, 0xad, 0xbe, 0xef}, 4); err != nil {
		t.Fatalf("corrupt slot 0: %v", err)
	}
	f.Close()

	r2, err := Open(path, 4)
	if err != nil {
		t.Fatalf("reopen Ring: %v", err)
	}
	defer r2.Close()
	all := r2.All()
	if len(all) != 1 || all[0].ID != 2 {
		t.Fatalf("All() after torn write = %+v, want only ID 2 surviving", all)
	}
}

func TestPristineRingIsEmpty(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(filepath.Join(dir, "log.bin"), 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if all := r.All(); len(all) != 0 {
		t.Fatalf("pristine ring All() = %+v, want empty", all)
	}
	if _, err := r.Latest(); err == nil {
		t.Fatalf("pristine ring Latest() should error")
	}
}
