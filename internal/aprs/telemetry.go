package aprs

import (
	"fmt"
	"strings"

	"aprsballoon/internal/datapoint"
)

// Telemetry channel scaling: analog channels carry battery volts, solar volts,
// battery mW, solar mW, and pressure, each linearly scaled into 0-255 via
// EQNS (spec §4.4). a=0, b=scale, c=offset such that raw = a*x^2 + b*x + c.
type telemetryChannel struct {
	name string
	unit string
	a, b, c float64
	scale func(dp datapoint.DataPoint) float64
}

var telemetryChannels = [5]telemetryChannel{
	{"VBat", "V", 0, 0.001, 0, func(dp datapoint.DataPoint) float64 { return float64(dp.PacVBat) }},
	{"VSol", "V", 0, 0.001, 0, func(dp datapoint.DataPoint) float64 { return float64(dp.PacVSol) }},
	{"PBat", "mW", 0, 1, 2000, func(dp datapoint.DataPoint) float64 { return float64(dp.PacPBat) }},
	{"PSol", "mW", 0, 1, 0, func(dp datapoint.DataPoint) float64 { return float64(dp.PacPSol) }},
	{"Press", "hPa", 0, 0.1, 0, func(dp datapoint.DataPoint) float64 { return float64(dp.BME[datapoint.BMESlotOnboard].Press) }},
}

// digitalBits reports the 8 boolean channels telemetry carries: sys_error's
// low 7 bits plus a GPS-locked flag in the high bit.
func digitalBits(dp datapoint.DataPoint) byte {
	bits := byte(dp.SysError & 0x7f)
	if dp.Fresh() {
		bits |= 0x80
	}
	return bits
}

// scaleToByte maps a telemetry channel's raw value into APRS's 0-255 range
// using that channel's linear equation, clamped at the edges.
func scaleToByte(ch telemetryChannel, dp datapoint.DataPoint) byte {
	raw := ch.scale(dp)
	v := ch.c + ch.b*raw + ch.a*raw*raw
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return byte(v)
	}
}

// EncodeTelemetryReport builds a "T#seq,a1,a2,a3,a4,a5,bbbbbbbb" telemetry
// data report info field (spec §4.4, emitted every beacon cycle).
func EncodeTelemetryReport(seq uint16, dp datapoint.DataPoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "T#%03d", seq%1000)
	for _, ch := range telemetryChannels {
		fmt.Fprintf(&b, ",%d", scaleToByte(ch, dp))
	}
	bits := digitalBits(dp)
	b.WriteByte(',')
	for i := 7; i >= 0; i-- {
		if bits&(1<<uint(i)) != 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// TelemetryConfigPDUs builds the four telemetry metadata messages (PARM, UNIT,
// EQNS, BITS), each addressed to ourCall, emitted as a group once per
// tel_enc_cycle (spec §4.4).
func TelemetryConfigPDUs(ourCall string) [4]string {
	pad := padCall(ourCall)
	names := make([]string, len(telemetryChannels))
	units := make([]string, len(telemetryChannels))
	eqns := make([]string, len(telemetryChannels))
	for i, ch := range telemetryChannels {
		names[i] = ch.name
		units[i] = ch.unit
		eqns[i] = fmt.Sprintf("%g,%g,%g", ch.a, ch.b, ch.c)
	}
	parm := fmt.Sprintf(":%s:PARM.%s,SysOK,GPS,PwrMtr,Camera,BME0,BME1,BME2,Locked",
		pad, strings.Join(names, ","))
	unit := fmt.Sprintf(":%s:UNIT.%s", pad, strings.Join(units, ","))
	eqn := fmt.Sprintf(":%s:EQNS.%s", pad, strings.Join(eqns, ","))
	bits := fmt.Sprintf(":%s:BITS.11111111,%s", pad, ourCall)
	return [4]string{parm, unit, eqn, bits}
}

// padCall pads/truncates a callsign-SSID string to APRS's fixed 9-character
// addressee field width.
func padCall(call string) string {
	if len(call) >= 9 {
		return call[:9]
	}
	return call + strings.Repeat(" ", 9-len(call))
}
