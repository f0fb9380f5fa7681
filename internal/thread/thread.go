// Package thread maps the tracker's spec'd thread-priority model onto goroutines.
// Go has no notion of goroutine priority, so the closest a userspace program gets
// to "the Radio Manager's worker runs above application threads" is pinning that
// goroutine to its own kernel thread and raising the thread's scheduling priority.
// Only the Collector and the radio chip's receive worker (radio.Chip) call
// Realtime; the Radio Manager's own loop and the application
// threads (beacon, image, log, digipeater, receiver) run unpinned at the default
// priority, matching spec §5's "application threads run at low priority".
package thread

import (
	"runtime"
	"syscall"
	"unsafe"
)

// Realtime locks the calling goroutine to its own kernel thread and elevates that
// thread's priority using the round-robin scheduling policy at the given level
// (0..99, higher runs first). It sets the round-robin scheduling policy.
func Realtime(priority int) error {
	// First pin goroutine to its own kernel thread.
	runtime.LockOSThread()
	// Get the ID of the thread.
	tid := syscall.Gettid()
	// Give this thread realtime priority.
	res, _, err := syscall.RawSyscall(syscall.SYS_SCHED_SETSCHEDULER, uintptr(tid),
		uintptr(RR), uintptr(unsafe.Pointer(&schedParam{priority})))
	if res == 0 {
		return nil
	}
	return err
}

// Priority levels used across the tracker's goroutines.
const (
	PriorityCollector   = 10 // normal priority (spec §5)
	PriorityRadioWorker = 20 // above application threads, below device ISRs
)

const FIFO = 1 // fifo scheduling policy
const RR = 2   // round-robin scheduling policy

type schedParam struct {
	Priority int
}
