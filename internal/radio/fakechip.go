package radio

import (
	"sync"
)

// FakeChip is a deterministic in-memory Transceiver for tests, recording
// every call instead of touching real registers — the generalization of
// sx1231/jeelabs_test.go's register-table fakes to this tracker's interface
// shape.
type FakeChip struct {
	mu sync.Mutex

	Freq uint32
	Power byte
	Mod  Modulation
	RSSIValue int
	Sent [][]byte

	rxChan chan RxFrame
	err    error
	closed bool
}

// NewFakeChip returns a FakeChip reporting rssi on every RSSI() call until
// Inject or SetRSSI changes it.
func NewFakeChip(rssi int) *FakeChip {
	return &FakeChip{RSSIValue: rssi, rxChan: make(chan RxFrame, 8)}
}

func (f *FakeChip) SetFrequency(hz uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Freq = hz
	return f.err
}

func (f *FakeChip) SetPower(dbm byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Power = dbm
	return f.err
}

func (f *FakeChip) SetModulation(m Modulation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Mod = m
	return f.err
}

func (f *FakeChip) RSSI() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.RSSIValue, f.err
}

func (f *FakeChip) Send(framed []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := make([]byte, len(framed))
	copy(cp, framed)
	f.Sent = append(f.Sent, cp)
	return nil
}

func (f *FakeChip) Recv() <-chan RxFrame { return f.rxChan }

func (f *FakeChip) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *FakeChip) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = nil
	return nil
}

func (f *FakeChip) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		close(f.rxChan)
		f.closed = true
	}
	return nil
}

// SetRSSI lets a test adjust the simulated channel occupancy.
func (f *FakeChip) SetRSSI(dbm int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RSSIValue = dbm
}

// FailNext makes the next operation return err, then clears.
func (f *FakeChip) FailNext(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// InjectRx delivers a synthetic received frame to Recv()'s channel.
func (f *FakeChip) InjectRx(frame RxFrame) {
	f.rxChan <- frame
}

var _ Transceiver = (*FakeChip)(nil)
