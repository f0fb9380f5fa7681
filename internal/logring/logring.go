// Package logring implements the tracker's non-volatile circular buffer of
// dataPoint records (spec §4.2/C3). The backing store is a flat file of
// fixed-stride, big-endian (encoding/binary) records, each trailer-CRCed with
// the same CRC-16/CCITT table AX.25 uses for its FCS (internal/crc16) — one
// checksum routine serving two consumers, grounded on sx1231's habit of
// building one small lookup table per register/protocol concern
// (tve-devices' sx1231/registers.go) and reusing it everywhere that concern
// appears.
package logring

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"aprsballoon/internal/crc16"
	"aprsballoon/internal/datapoint"
	"aprsballoon/internal/errs"
)

// emptySentinel marks an empty (never written, or torn) slot's ID field.
const emptySentinel uint32 = 0xffffffff

// recordSize is the fixed on-disk stride of one slot: the serialized
// DataPoint fields plus a trailing 2-byte CRC.
const recordSize = 4 + 4 + 8 + 2 + // ID, SysTime, GPSTime, ResetCount
	1 + 1 + 2 + 2 + 4 + 4 + 4 + // GPSState, GPSSats, GPSTTFF, GPSPDOP, GPSAlt, GPSLat, GPSLon
	2 + 2 + 2 + 2 + 2 + 2 + 2 + // AdcVBat, AdcVSol, PacVBat, PacVSol, PacPBat, PacPSol, LightIntensity
	3*(4+4+4+1) + // BME[3]: Press, Temp, Hum, Status
	4 + 4 + // STM32Temp, Si446xTemp
	4 + 2 + // SysError, GPIO
	2 // trailing CRC

// Ring is a fixed-capacity non-volatile circular buffer of DataPoint records.
// Exactly one Ring should be open on a given file at a time; the mutex guards
// the single-writer contract (spec §5: "Latest dataPoint pointer: single
// writer (Collector)") and also protects concurrent readers from a
// half-written head slot.
type Ring struct {
	mu       sync.Mutex
	f        *os.File
	capacity int
	head     int // next slot index to write
}

// Open opens (creating if necessary) a log ring backed by path with room for
// capacity records, and scans it to find the current head.
func Open(path string, capacity int) (*Ring, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logring: open %s: %w", path, err)
	}
	want := int64(capacity) * recordSize
	if fi, err := f.Stat(); err == nil && fi.Size() < want {
		if err := f.Truncate(want); err != nil {
			f.Close()
			return nil, fmt.Errorf("logring: truncate %s: %w", path, err)
		}
		// A freshly extended file reads as zero bytes, which decode as ID==0,
		// not the empty sentinel; pre-fill every new slot as empty so Open's
		// pristine-ring invariant (spec §4.2 (a)) holds from the start.
		empty := emptyRecord()
		for i := int(fi.Size() / recordSize); i < capacity; i++ {
			if _, err := f.WriteAt(empty, int64(i)*recordSize); err != nil {
				f.Close()
				return nil, fmt.Errorf("logring: initialize slot %d: %w", i, err)
			}
		}
	}
	r := &Ring{f: f, capacity: capacity}
	r.head = r.findHead()
	return r, nil
}

// emptyRecord returns a recordSize-byte record with the empty sentinel ID and
// a correct CRC, so a freshly truncated/initialized slot reads back as empty
// rather than as corrupt.
func emptyRecord() []byte {
	buf := make([]byte, recordSize)
	binary.BigEndian.PutUint32(buf[0:4], emptySentinel)
	sum := crc16.Checksum(buf[:recordSize-2])
	binary.BigEndian.PutUint16(buf[recordSize-2:], sum)
	return buf
}

// findHead scans the ring for the first empty (or torn) slot following the
// highest-ID contiguous run, implementing spec §4.2's invariant (b): "records
// form a contiguous ring with one head slot". If the ring is pristine
// (invariant a), head is 0.
func (r *Ring) findHead() int {
	var bestIdx int = -1
	var bestID uint32
	for i := 0; i < r.capacity; i++ {
		dp, id, ok := r.readSlot(i)
		_ = dp
		if !ok {
			continue
		}
		if bestIdx == -1 || idNewer(id, bestID) {
			bestIdx, bestID = i, id
		}
	}
	if bestIdx == -1 {
		return 0
	}
	return (bestIdx + 1) % r.capacity
}

// idNewer reports whether id is more recent than cur, accounting for 32-bit
// wraparound the way TCP sequence-number comparisons do.
func idNewer(id, cur uint32) bool {
	return int32(id-cur) > 0
}

// readSlot reads slot i, returning (zero, 0, false) if the slot is empty or
// its CRC fails (spec §4.2: "torn records are treated as empty").
func (r *Ring) readSlot(i int) (datapoint.DataPoint, uint32, bool) {
	buf := make([]byte, recordSize)
	if _, err := r.f.ReadAt(buf, int64(i)*recordSize); err != nil {
		return datapoint.DataPoint{}, 0, false
	}
	body := buf[:recordSize-2]
	want := binary.BigEndian.Uint16(buf[recordSize-2:])
	if crc16.Checksum(body) != want {
		return datapoint.DataPoint{}, 0, false
	}
	id := binary.BigEndian.Uint32(buf[0:4])
	if id == emptySentinel {
		return datapoint.DataPoint{}, 0, false
	}
	dp := decodeRecord(buf)
	return dp, id, true
}

// Append writes dp into the head slot and advances the head, wrapping at
// capacity. Writes are idempotent per ID only immediately after power-on
// recovery (spec §4.2); Append itself always writes, callers enforce the
// idempotency contract around restart handling.
func (r *Ring) Append(dp datapoint.DataPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := encodeRecord(dp)
	if _, err := r.f.WriteAt(buf, int64(r.head)*recordSize); err != nil {
		return fmt.Errorf("logring: write slot %d: %w", r.head, err)
	}
	r.head = (r.head + 1) % r.capacity
	return nil
}

// All returns every valid record currently in the ring, oldest first.
func (r *Ring) All() []datapoint.DataPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]datapoint.DataPoint, 0, r.capacity)
	for k := 0; k < r.capacity; k++ {
		i := (r.head + k) % r.capacity
		dp, _, ok := r.readSlot(i)
		if ok {
			out = append(out, dp)
		}
	}
	return out
}

// Latest returns the most recently written record, or errs.ErrNoPosition if
// the ring is empty.
func (r *Ring) Latest() (datapoint.DataPoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := (r.head - 1 + r.capacity) % r.capacity
	dp, _, ok := r.readSlot(prev)
	if !ok {
		return datapoint.DataPoint{}, errs.ErrNoPosition
	}
	return dp, nil
}

// At returns the record currently stored in logical slot index (0 is the
// oldest surviving record), for the Collector's get_log(index) operation and
// the diagnostic CLI's readLog command. On a ring that hasn't wrapped yet,
// head points at the next empty slot rather than the oldest record, so index
// is counted over valid records only (the same skip-empty walk All() does),
// not over raw slot offsets from head.
func (r *Ring) At(index int) (datapoint.DataPoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= r.capacity {
		return datapoint.DataPoint{}, false
	}
	seen := 0
	for k := 0; k < r.capacity; k++ {
		dp, _, ok := r.readSlot((r.head + k) % r.capacity)
		if !ok {
			continue
		}
		if seen == index {
			return dp, true
		}
		seen++
	}
	return datapoint.DataPoint{}, false
}

// Capacity returns the ring's fixed slot count.
func (r *Ring) Capacity() int {
	return r.capacity
}

// Close flushes and closes the backing file.
func (r *Ring) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Close()
}

var _ io.Closer = (*Ring)(nil)
