package packetpool

import (
	"errors"
	"sync"
	"testing"

	"aprsballoon/internal/errs"
)

func TestGetReleaseRoundTrip(t *testing.T) {
	p := New(2)
	a, err := p.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, err := p.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a == b {
		t.Fatalf("Get returned the same slot twice")
	}
	_, err = p.Get()
	if !errors.Is(err, errs.ErrPacketPoolEmpty) {
		t.Fatalf("Get on exhausted pool = %v, want ErrPacketPoolEmpty", err)
	}
	a.Release()
	c, err := p.Get()
	if err != nil {
		t.Fatalf("Get after Release: %v", err)
	}
	if c != a {
		t.Fatalf("Get after Release did not recycle the released slot")
	}
	b.Release()
	c.Release()
}

func TestRetainKeepsPacketAlive(t *testing.T) {
	p := New(1)
	a, _ := p.Get()
	a.Retain()
	a.Release() // refcount now 1, still owned
	if _, err := p.Get(); !errors.Is(err, errs.ErrPacketPoolEmpty) {
		t.Fatalf("pool freed a packet while a Retain-er still held it")
	}
	a.Release() // refcount now 0, freed
	if _, err := p.Get(); err != nil {
		t.Fatalf("Get after final Release: %v", err)
	}
}

func TestDoubleReleasePanics(t *testing.T) {
	p := New(1)
	a, _ := p.Get()
	a.Release()
	defer func() {
		if recover() == nil {
			t.Fatalf("double Release did not panic")
		}
	}()
	a.Release()
}

func TestConcurrentGetRelease(t *testing.T) {
	const capacity = 8
	p := New(capacity)
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				pk, err := p.Get()
				if err != nil {
					continue
				}
				pk.Data[0] = byte(j)
				pk.Len = 1
				pk.Release()
			}
		}()
	}
	wg.Wait()
	// Pool must still have exactly `capacity` free slots after all goroutines drain.
	got := make([]*Packet, 0, capacity)
	for {
		pk, err := p.Get()
		if err != nil {
			break
		}
		got = append(got, pk)
	}
	if len(got) != capacity {
		t.Fatalf("after concurrent use, pool yielded %d packets, want %d", len(got), capacity)
	}
}
