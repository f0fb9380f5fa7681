// Package errs collects the sentinel error kinds shared across the tracker's
// components so that each package can wrap its own context with %w while callers
// can still recognize the failure mode with errors.Is.
package errs

import "errors"

var (
	// ErrI2CBus indicates a sensor access over I2C failed; the sensor's value is
	// marked invalid and the corresponding sys_error bit is set.
	ErrI2CBus = errors.New("i2c bus error")

	// ErrNoPosition indicates no valid GPS fix is available.
	ErrNoPosition = errors.New("no gps position available")

	// ErrPacketPoolEmpty indicates the packet pool has no free buffers.
	ErrPacketPoolEmpty = errors.New("packet pool empty")

	// ErrChannelBusy indicates CCA retries were exhausted without a clear channel.
	ErrChannelBusy = errors.New("channel busy")

	// ErrRadioHardware indicates the transceiver failed and was reset.
	ErrRadioHardware = errors.New("radio hardware error")

	// ErrConfigInvalid indicates the non-volatile configuration page failed its
	// CRC check and compile-time defaults were substituted.
	ErrConfigInvalid = errors.New("configuration invalid")

	// ErrWatchdog indicates an application thread missed its heartbeat.
	ErrWatchdog = errors.New("watchdog timeout")

	// ErrPacketTooLong indicates the codec rejected an info field at encode time.
	ErrPacketTooLong = errors.New("packet too long")

	// ErrFrameCorrupt indicates an AX.25 frame failed its FCS check.
	ErrFrameCorrupt = errors.New("frame failed fcs check")

	// ErrTaskTimeout indicates a RadioTask did not complete within its deadline.
	ErrTaskTimeout = errors.New("radio task timed out")

	// ErrTaskCancelled indicates a RadioTask was cancelled before PREP began.
	ErrTaskCancelled = errors.New("radio task cancelled")
)
