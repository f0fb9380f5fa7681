// Package datapoint defines the tracker's core telemetry record, the dataPoint of
// spec §3, along with the small enums and status codes it carries. A dataPoint is
// immutable once published by the collector (internal/collector); every other
// package only ever reads a value received from there.
package datapoint

import "time"

// GPSState classifies the GPS subsystem's condition at the time a DataPoint was
// produced. Only LockedOn/LockedOff represent a fresh fix.
type GPSState uint8

const (
	GPSLockedOff GPSState = iota
	GPSLockedOn
	GPSLoss
	GPSLowBattNeverOn
	GPSLowBattEarlyOff
	GPSFromLog
	GPSOff
	GPSError
	GPSFromAPRSFix
)

func (s GPSState) String() string {
	switch s {
	case GPSLockedOff:
		return "LOCKED_OFF"
	case GPSLockedOn:
		return "LOCKED_ON"
	case GPSLoss:
		return "LOSS"
	case GPSLowBattNeverOn:
		return "LOWBATT_NEVER_ON"
	case GPSLowBattEarlyOff:
		return "LOWBATT_EARLY_OFF"
	case GPSFromLog:
		return "FROM_LOG"
	case GPSOff:
		return "OFF"
	case GPSError:
		return "ERROR"
	case GPSFromAPRSFix:
		return "FROM_APRS_FIX"
	default:
		return "UNKNOWN"
	}
}

// BMEStatus is the 2-bit status carried alongside each BME280 reading.
type BMEStatus uint8

const (
	BMEOk BMEStatus = iota
	BMEFail
	BMENotFitted
)

// BMEStatusBits is the width, in bits, of one BMEStatus field within the packed
// sys_error-adjacent status word. Exposed so BMEStatusShift (below) and its
// callers agree on layout.
const BMEStatusBits = 2

// BME slot indices, in the strict read order the collector uses (spec §4.1 step 3).
const (
	BMESlotOnboard = iota // i1
	BMESlotExt1           // e1
	BMESlotExt2           // e2
	bmeSlotCount
)

// bmeI1StatusShift is the bit position of the onboard (i1) BME280's status field
// within the packed status word.
const bmeI1StatusShift = 0

// BMEStatusShift returns the bit offset of the given slot's status field. SPEC_FULL
// open question (b): the original source's layout has a typo for the e2 slot; this
// implementation follows the documented fix, BMEI1_STATUS_SHIFT + 2*BME_STATUS_BITS
// for e2, i.e. every slot is simply spaced BMEStatusBits apart starting at i1.
func BMEStatusShift(slot int) uint {
	return uint(bmeI1StatusShift + slot*BMEStatusBits)
}

// BMEReading is one BME280's result: pressure in 0.1 Pa, temperature in 0.01 degC,
// humidity in percent, each valid only when Status == BMEOk.
type BMEReading struct {
	Press  int32
	Temp   int32
	Hum    int32
	Status BMEStatus
}

// SysError bit positions, packed into DataPoint.SysError.
const (
	SysErrI2C uint32 = 1 << iota
	SysErrGPS
	SysErrPowerMeter
	SysErrCamera
	SysErrBME0
	SysErrBME1
	SysErrBME2
)

// GPIOLine is a snapshot of the board's digital input lines at sample time.
type GPIOLine uint16

// DataPoint is the immutable telemetry snapshot published by the collector. Every
// field is a plain value (no pointers) so that a DataPoint is safe to hand to any
// number of concurrent readers without synchronization once published.
type DataPoint struct {
	// Identity
	ID         uint32
	SysTime    uint32 // seconds since boot
	GPSTime    int64  // epoch seconds from GPS, 0 if none
	ResetCount uint16

	// GPS
	GPSState GPSState
	GPSSats  uint8
	GPSTTFF  uint16 // seconds
	GPSPDOP  uint16 // 0.05 units
	GPSAlt   int32  // meters
	GPSLat   int32  // 1e-7 degrees
	GPSLon   int32  // 1e-7 degrees

	// Power
	AdcVBat        uint16 // mV
	AdcVSol        uint16 // mV
	PacVBat        uint16 // mV
	PacVSol        uint16 // mV
	PacPBat        int16  // mW, signed
	PacPSol        int16  // mW, signed
	LightIntensity uint16

	// Environmental, strict read order i1 (onboard), e1, e2 (external)
	BME [3]BMEReading

	// Thermal
	STM32Temp  int32 // 0.01 degC
	Si446xTemp int32 // 0.01 degC

	// Flags
	SysError uint32
	GPIO     GPIOLine
}

// Fresh reports whether the DataPoint's GPS state represents a live lock, i.e.
// whether it was produced within the collector's freshness window (spec §3
// invariant: gps_state == LOCKED_* iff last fix was within that window).
func (d *DataPoint) Fresh() bool {
	return d.GPSState == GPSLockedOn || d.GPSState == GPSLockedOff
}

// HasPosition reports whether GPSLat/GPSLon carry a usable position, including the
// FROM_LOG/FROM_APRS_FIX fallback states.
func (d *DataPoint) HasPosition() bool {
	switch d.GPSState {
	case GPSLockedOn, GPSLockedOff, GPSFromLog, GPSFromAPRSFix:
		return d.GPSLat != 0 || d.GPSLon != 0
	default:
		return false
	}
}

// BootTime resolves SysTime (seconds since boot) against a reference wall-clock time
// captured at boot, for diagnostics and log display only; the wire format always
// carries SysTime/GPSTime directly.
func (d *DataPoint) BootTime(bootAt time.Time) time.Time {
	return bootAt.Add(time.Duration(d.SysTime) * time.Second)
}
