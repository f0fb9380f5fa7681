package sensors

import (
	"aprsballoon/internal/devices"
	"aprsballoon/internal/errs"
)

// Thermal reads the two chip-internal temperature sensors spec §3 carries
// (stm32_temp, si446x_temp), both in 0.01 degC units.
type Thermal struct {
	bus        devices.I2C
	mcuAddr    uint16
	radioAddr  uint16
}

// NewThermal returns a façade reading the MCU's and the radio chip's
// internal temperature sensors over bus.
func NewThermal(bus devices.I2C, mcuAddr, radioAddr uint16) *Thermal {
	return &Thermal{bus: bus, mcuAddr: mcuAddr, radioAddr: radioAddr}
}

// MCUTemp reads the STM32's internal temperature sensor.
func (t *Thermal) MCUTemp() (int32, error) {
	return t.readTempReg(t.mcuAddr)
}

// RadioTemp reads the Si446x transceiver's internal temperature sensor.
func (t *Thermal) RadioTemp() (int32, error) {
	return t.readTempReg(t.radioAddr)
}

func (t *Thermal) readTempReg(addr uint16) (int32, error) {
	if t.bus == nil {
		return 0, errs.ErrI2CBus
	}
	raw := make([]byte, 2)
	const tempReg = 0x00
	if err := t.bus.Tx(addr, []byte{tempReg}, raw); err != nil {
		return 0, errs.ErrI2CBus
	}
	// Signed 16-bit, 0.01 degC/count, matching the scale the rest of the
	// dataPoint's temperature fields use.
	raw16 := int16(raw[0])<<8 | int16(raw[1])
	return int32(raw16), nil
}
