package sensors

import (
	"aprsballoon/internal/devices"
	"aprsballoon/internal/errs"
)

// PAC1720 register addresses for its two current-sense channels (battery,
// solar).
const (
	pac1720RegVSrc1 = 0x0d // 10-bit bus voltage, channel 1 (battery)
	pac1720RegVSrc2 = 0x0f // channel 2 (solar)
	pac1720RegVSense1 = 0x0b // current-sense voltage, channel 1
	pac1720RegVSense2 = 0x0c // channel 2

	pac1720SenseResistorMilliohm = 100 // board's shunt resistor value
)

// PAC1720 is the dual-channel power monitor (battery + solar) feeding the
// Collector's power fields (spec §3 Power: pac_vbat/pac_vsol/pac_pbat/pac_psol).
type PAC1720 struct {
	bus  devices.I2C
	addr uint16
}

// NewPAC1720 returns a façade for the power monitor at addr on bus.
func NewPAC1720(bus devices.I2C, addr uint16) *PAC1720 {
	return &PAC1720{bus: bus, addr: addr}
}

// PowerReading is one channel's voltage (mV) and power (mW, signed: negative
// means current flowing out of the rail rather than in).
type PowerReading struct {
	VoltageMv uint16
	PowerMw   int16
}

// ReadBattery reads the battery channel.
func (p *PAC1720) ReadBattery() (PowerReading, error) {
	return p.readChannel(pac1720RegVSrc1, pac1720RegVSense1)
}

// ReadSolar reads the solar channel.
func (p *PAC1720) ReadSolar() (PowerReading, error) {
	return p.readChannel(pac1720RegVSrc2, pac1720RegVSense2)
}

func (p *PAC1720) readChannel(vReg, iReg byte) (PowerReading, error) {
	if p.bus == nil {
		return PowerReading{}, errs.ErrI2CBus
	}
	vraw := make([]byte, 2)
	if err := p.bus.Tx(p.addr, []byte{vReg}, vraw); err != nil {
		return PowerReading{}, errs.ErrI2CBus
	}
	iraw := make([]byte, 2)
	if err := p.bus.Tx(p.addr, []byte{iReg}, iraw); err != nil {
		return PowerReading{}, errs.ErrI2CBus
	}
	// 10-bit voltage in 4.375mV steps (PAC1720 full-scale bus voltage range).
	vCode := int32(vraw[0])<<2 | int32(vraw[1])>>6
	mv := uint16(vCode * 4375 / 1000)

	// Current-sense voltage is 11-bit signed in 5uV steps; power is V*I.
	iCode := int32(int8(iraw[0]))<<3 | int32(iraw[1])>>5
	senseUv := iCode * 5
	currentUa := senseUv * 1000 / pac1720SenseResistorMilliohm
	mw := int16(int64(mv) * int64(currentUa) / 1_000_000)

	return PowerReading{VoltageMv: mv, PowerMw: mw}, nil
}
