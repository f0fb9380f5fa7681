// Package radio implements the tracker's single-transceiver Radio Manager
// (C6): a priority-queued state machine that serialises transmit requests
// across a shared half-duplex radio and returns it to receive afterward.
//
// The chip-level driver is split behind a Transceiver interface, the
// generalization of the teacher's two concrete radios (tve-devices'
// sx1231.Radio, FSK-only with a fixed rate table, and sx1276.Radio,
// LoRa-only) into one contract spanning both AFSK1200 and FSK9600.
package radio

import (
	"time"
)

// Modulation identifies the line code used for a transmission.
type Modulation int

const (
	// ModAFSK1200 is Bell-202 tone AFSK at 1200 bps, NRZI-coded, as used by
	// legacy 2m APRS.
	ModAFSK1200 Modulation = iota
	// ModFSK9600 is direct 2-FSK at 9600 bps, G3RUH-scrambled, as used by
	// 9k6-capable APRS equipment.
	ModFSK9600
)

func (m Modulation) String() string {
	switch m {
	case ModAFSK1200:
		return "AFSK1200"
	case ModFSK9600:
		return "FSK9600"
	default:
		return "unknown"
	}
}

// RxFrame is one received frame as the chip delivers it, still line-coded
// and bit-stuffed with its FCS attached (DecodeFrame turns Body into an AX.25
// frame body), together with the RSSI it was received at.
type RxFrame struct {
	Body []byte
	RSSI int
	At   time.Time
}

// Transceiver is the hardware contract the Radio Manager drives. A
// concrete implementation (chip.go) owns one physical radio; fakechip.go
// provides a deterministic in-memory stand-in for tests, exactly as
// tve-devices' sx1231/jeelabs_test.go exercises register tables without
// real hardware.
type Transceiver interface {
	// SetFrequency tunes the center frequency, in Hz.
	SetFrequency(hz uint32) error
	// SetPower sets transmit power, 0..0x7F mapping to the chip's dBm table.
	SetPower(dbm byte) error
	// SetModulation switches the chip's line code and filters.
	SetModulation(m Modulation) error
	// RSSI samples the current received signal strength, in dBm, for CCA.
	RSSI() (int, error)
	// Send transmits framed bytes (preamble, HDLC flags, bit-stuffed body,
	// FCS already applied by the caller) and blocks until the chip reports
	// the frame is fully clocked out.
	Send(framed []byte) error
	// Recv returns the channel carrying received frames. A persistent
	// hardware error does not close the channel; it is reported by Err.
	Recv() <-chan RxFrame
	// Err returns the last persistent error, mirroring the teacher's r.err
	// field (sx1231.Radio.Error()).
	Err() error
	// Reset re-initializes the chip after a persistent error.
	Reset() error
	// Close releases the underlying bus handles.
	Close() error
}
