package diag

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "diag.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMarkHeardUpsertsAndCounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := s.MarkHeard(ctx, "N0CALL-9", now, false); err != nil {
		t.Fatalf("MarkHeard: %v", err)
	}
	if err := s.MarkHeard(ctx, "N0CALL-9", now.Add(time.Minute), true); err != nil {
		t.Fatalf("MarkHeard: %v", err)
	}

	stations, err := s.ListHeard(ctx)
	if err != nil {
		t.Fatalf("ListHeard: %v", err)
	}
	if len(stations) != 1 {
		t.Fatalf("expected 1 station, got %d", len(stations))
	}
	if stations[0].DigipeatedCount != 1 {
		t.Fatalf("expected digipeated_count 1, got %d", stations[0].DigipeatedCount)
	}
}

func TestRecordMessageAndMarkAcked(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.RecordMessage(ctx, "N0CALL-9", "hello", "42")
	if err != nil {
		t.Fatalf("RecordMessage: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected nonzero id")
	}
	if err := s.MarkAcked(ctx, id, time.Now()); err != nil {
		t.Fatalf("MarkAcked: %v", err)
	}
}

func TestRecordWatchdogReset(t *testing.T) {
	s := openTestStore(t)
	if err := s.RecordWatchdogReset(context.Background(), "beacon", time.Now()); err != nil {
		t.Fatalf("RecordWatchdogReset: %v", err)
	}
}
