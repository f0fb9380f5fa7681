package logring

import (
	"encoding/binary"

	"aprsballoon/internal/crc16"
	"aprsballoon/internal/datapoint"
)

// encodeRecord serializes dp into a fixed recordSize-byte, big-endian record
// with a trailing CRC-16/CCITT, the bit-stable layout spec §4.2/§6 requires.
func encodeRecord(dp datapoint.DataPoint) []byte {
	buf := make([]byte, recordSize)
	be := binary.BigEndian
	i := 0
	be.PutUint32(buf[i:], dp.ID)
	i += 4
	be.PutUint32(buf[i:], dp.SysTime)
	i += 4
	be.PutUint64(buf[i:], uint64(dp.GPSTime))
	i += 8
	be.PutUint16(buf[i:], dp.ResetCount)
	i += 2

	buf[i] = byte(dp.GPSState)
	i++
	buf[i] = dp.GPSSats
	i++
	be.PutUint16(buf[i:], dp.GPSTTFF)
	i += 2
	be.PutUint16(buf[i:], dp.GPSPDOP)
	i += 2
	be.PutUint32(buf[i:], uint32(dp.GPSAlt))
	i += 4
	be.PutUint32(buf[i:], uint32(dp.GPSLat))
	i += 4
	be.PutUint32(buf[i:], uint32(dp.GPSLon))
	i += 4

	be.PutUint16(buf[i:], dp.AdcVBat)
	i += 2
	be.PutUint16(buf[i:], dp.AdcVSol)
	i += 2
	be.PutUint16(buf[i:], dp.PacVBat)
	i += 2
	be.PutUint16(buf[i:], dp.PacVSol)
	i += 2
	be.PutUint16(buf[i:], uint16(dp.PacPBat))
	i += 2
	be.PutUint16(buf[i:], uint16(dp.PacPSol))
	i += 2
	be.PutUint16(buf[i:], dp.LightIntensity)
	i += 2

	for _, b := range dp.BME {
		be.PutUint32(buf[i:], uint32(b.Press))
		i += 4
		be.PutUint32(buf[i:], uint32(b.Temp))
		i += 4
		be.PutUint32(buf[i:], uint32(b.Hum))
		i += 4
		buf[i] = byte(b.Status)
		i++
	}

	be.PutUint32(buf[i:], uint32(dp.STM32Temp))
	i += 4
	be.PutUint32(buf[i:], uint32(dp.Si446xTemp))
	i += 4

	be.PutUint32(buf[i:], dp.SysError)
	i += 4
	be.PutUint16(buf[i:], uint16(dp.GPIO))
	i += 2

	sum := crc16.Checksum(buf[:i])
	be.PutUint16(buf[i:], sum)
	return buf
}

// decodeRecord reverses encodeRecord. Callers must already have verified the
// trailing CRC (Ring.readSlot does this); decodeRecord itself does not
// re-check it.
func decodeRecord(buf []byte) datapoint.DataPoint {
	be := binary.BigEndian
	var dp datapoint.DataPoint
	i := 0
	dp.ID = be.Uint32(buf[i:])
	i += 4
	dp.SysTime = be.Uint32(buf[i:])
	i += 4
	dp.GPSTime = int64(be.Uint64(buf[i:]))
	i += 8
	dp.ResetCount = be.Uint16(buf[i:])
	i += 2

	dp.GPSState = datapoint.GPSState(buf[i])
	i++
	dp.GPSSats = buf[i]
	i++
	dp.GPSTTFF = be.Uint16(buf[i:])
	i += 2
	dp.GPSPDOP = be.Uint16(buf[i:])
	i += 2
	dp.GPSAlt = int32(be.Uint32(buf[i:]))
	i += 4
	dp.GPSLat = int32(be.Uint32(buf[i:]))
	i += 4
	dp.GPSLon = int32(be.Uint32(buf[i:]))
	i += 4

	dp.AdcVBat = be.Uint16(buf[i:])
	i += 2
	dp.AdcVSol = be.Uint16(buf[i:])
	i += 2
	dp.PacVBat = be.Uint16(buf[i:])
	i += 2
	dp.PacVSol = be.Uint16(buf[i:])
	i += 2
	dp.PacPBat = int16(be.Uint16(buf[i:]))
	i += 2
	dp.PacPSol = int16(be.Uint16(buf[i:]))
	i += 2
	dp.LightIntensity = be.Uint16(buf[i:])
	i += 2

	for k := range dp.BME {
		dp.BME[k].Press = int32(be.Uint32(buf[i:]))
		i += 4
		dp.BME[k].Temp = int32(be.Uint32(buf[i:]))
		i += 4
		dp.BME[k].Hum = int32(be.Uint32(buf[i:]))
		i += 4
		dp.BME[k].Status = datapoint.BMEStatus(buf[i])
		i++
	}

	dp.STM32Temp = int32(be.Uint32(buf[i:]))
	i += 4
	dp.Si446xTemp = int32(be.Uint32(buf[i:]))
	i += 4

	dp.SysError = be.Uint32(buf[i:])
	i += 4
	dp.GPIO = datapoint.GPIOLine(be.Uint16(buf[i:]))
	i += 2

	return dp
}
