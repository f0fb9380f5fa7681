// Package devices collects the small bus abstractions (SPI, I2C, GPIO) that the
// sensor façade (internal/sensors) and the radio transceiver driver
// (internal/radio) are built against, plus two concrete backends: one on top of
// periph.io/x/periph (the primary, modern backend) and one on top of
// github.com/kidoman/embd (the legacy backend, kept selectable at config time for
// boards periph doesn't yet support).
//
// This mirrors tve-devices' shim.go, generalized with an I2C interface alongside
// the original SPI/GPIO pair: the teacher only ever drove SPI radios, this tracker
// also needs the I2C bus for BME280 and PAC1720.
package devices

import "time"

// SPI is the subset of SPI bus operations the radio and SPI-attached peripherals
// need.
type SPI interface {
	Tx(w, r []byte) error
	Speed(hz int64) error
	Configure(mode int, bits int) error
	Close() error
}

// I2C is the subset of I2C bus operations the sensor façade needs. Unlike SPI there
// is no chip-select: addressing happens per-transaction.
type I2C interface {
	// Tx writes w to addr and then reads len(r) bytes back, as a single
	// repeated-start transaction where possible.
	Tx(addr uint16, w, r []byte) error
	Close() error
}

// GPIO is a single digital line, used for the radio's interrupt pin and for
// sensor power-control lines (e.g. the GPS power switch).
type GPIO interface {
	In(edge int) error
	Read() int
	WaitForEdge(timeout time.Duration) bool
	Out(level int)
	Number() int
}

const (
	SPIMode0 = 0x0 // CPOL=0, CPHA=0
	SPIMode1 = 0x1 // CPOL=0, CPHA=1
	SPIMode2 = 0x2 // CPOL=1, CPHA=0
	SPIMode3 = 0x3 // CPOL=1, CPHA=1
)

const (
	GpioLow        = 0
	GpioHigh       = 1
	GpioNoEdge     = 0
	GpioRisingEdge = 1
)

// Bus bundles the buses and pins a tracker build needs, so that callers (the
// sensor façade, the radio driver) don't each have to thread four separate
// constructor arguments through their config.
type Bus struct {
	SPI     SPI  // radio transceiver, shared with any auxiliary SPI flash via spimux
	I2C     I2C  // BME280s, PAC1720
	RadioIntr GPIO // radio interrupt pin
	GPSPower  GPIO // GPS power-control line
}
