// Package packetpool implements the tracker's fixed-capacity AX.25 packet buffer
// arena (spec §4.2/C8). Every packet that flows through internal/radio and
// internal/threads is borrowed from here and returned when its last reader is done,
// so the tracker never allocates on its steady-state TX/RX paths. The guard-with-a-
// mutex idiom follows sx1231.Radio's own pattern of a sync.Mutex around shared state
// (grounded on tve-devices' sx1231/sx1231.go); the lock-free freelist fast path is
// this package's own addition to satisfy spec §4.2's refcount/no-alloc contract, since
// nothing in the pack implements an arena allocator to adapt from directly.
package packetpool

import (
	"sync"
	"sync/atomic"

	"aprsballoon/internal/errs"
)

// MaxPayload is the largest AX.25 info field a pool Packet can carry.
const MaxPayload = 256

// maxFrameBody is the size of a Packet's buffer: a whole AX.25 frame body
// (dest, src and up to 8 digi addresses, control, PID) around a MaxPayload
// info field.
const maxFrameBody = 7*(2+8) + 2 + MaxPayload

// Packet is a pool-owned AX.25 frame buffer. Callers obtain one via Pool.Get,
// fill Data[:Len], and must call Release exactly once when done with it (the
// Radio Manager and any digipeat/ack paths that retain a reference call Retain
// first).
type Packet struct {
	Data [maxFrameBody]byte
	Len  int

	pool    *Pool
	index   int32
	refs    int32 // atomic refcount; 0 means "on the freelist"
	nextFree int32 // index of next free slot, or -1; CAS-linked freelist
}

// Pool is a fixed-capacity allocator of Packet values. The free list is a
// Treiber stack of slot indices, linked through each Packet's nextFree field and
// updated with CAS; Get/Release never allocate once New has built the arena.
type Pool struct {
	slots []Packet
	head  int32 // index of first free slot, or -1 if empty

	// mu guards the pool exhaustion counter, the only state Get locks for
	// (and only when the pool is empty). Release never takes it.
	mu        sync.Mutex
	exhausted uint64 // count of Get calls that found the pool empty
}

const sentinelNone = -1

// New builds a Pool with capacity slots, all initially free.
func New(capacity int) *Pool {
	p := &Pool{slots: make([]Packet, capacity)}
	for i := range p.slots {
		p.slots[i].pool = p
		p.slots[i].index = int32(i)
		next := int32(i + 1)
		if i == capacity-1 {
			next = sentinelNone
		}
		p.slots[i].nextFree = next
	}
	if capacity == 0 {
		p.head = sentinelNone
	}
	return p
}

// Get pops a free slot off the freelist and returns it with refcount 1. It
// returns errs.ErrPacketPoolEmpty if the pool is exhausted, per spec §4.2's "no
// blocking allocation" contract — callers (the application threads, through
// internal/threads' acquirePacket) drop that send.
func (p *Pool) Get() (*Packet, error) {
	for {
		head := atomic.LoadInt32(&p.head)
		if head == sentinelNone {
			p.mu.Lock()
			p.exhausted++
			p.mu.Unlock()
			return nil, errs.ErrPacketPoolEmpty
		}
		slot := &p.slots[head]
		next := atomic.LoadInt32(&slot.nextFree)
		if atomic.CompareAndSwapInt32(&p.head, head, next) {
			slot.Len = 0
			atomic.StoreInt32(&slot.refs, 1)
			return slot, nil
		}
		// Lost the race to another Get/Release; retry.
	}
}

// Retain increments the packet's refcount; call once per extra owner (e.g. the
// Radio Manager retaining a packet queued for digipeat retransmission while the
// originating thread still holds its own reference).
func (pk *Packet) Retain() {
	if atomic.AddInt32(&pk.refs, 1) <= 1 {
		panic("packetpool: Retain on a packet with zero or negative refcount")
	}
}

// Release decrements the packet's refcount and, if it reaches zero, pushes the
// slot back onto the freelist.
func (pk *Packet) Release() {
	n := atomic.AddInt32(&pk.refs, -1)
	switch {
	case n > 0:
		return
	case n < 0:
		panic("packetpool: double Release of packet")
	}
	p := pk.pool
	for {
		head := atomic.LoadInt32(&p.head)
		atomic.StoreInt32(&pk.nextFree, head)
		if atomic.CompareAndSwapInt32(&p.head, head, pk.index) {
			return
		}
	}
}

// Exhausted returns the number of times Get found the pool empty, for
// diagnostics.
func (p *Pool) Exhausted() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exhausted
}

// Capacity returns the pool's fixed slot count.
func (p *Pool) Capacity() int {
	return len(p.slots)
}
