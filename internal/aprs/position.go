// Package aprs builds and parses the APRS protocol data units the tracker sends
// and receives: position+telemetry beacons, telemetry metadata (PARM/UNIT/EQNS/
// BITS), messages with ACK/REJ, and APRSD heard-station responses (spec §4.4).
// Each PDU kind gets its own file, the way goblimey's rtcm package gives each
// RTCM message type its own subpackage (type1005, msm4, msm7, ...) — APRS PDUs
// are simpler text formats so one package with one file per kind is the right
// granularity rather than goblimey's one-subpackage-per-type split.
package aprs

import (
	"fmt"
	"strings"

	"aprsballoon/internal/datapoint"
)

// uncompressed APRS position report, symbol table '/' (primary), symbol code 'O'.
const (
	dataTypePosition = '!' // no timestamp, no messaging
	symTableBalloon  = '/'
	symCodeBalloon   = 'O' // APRS balloon symbol
)

// EncodePosition builds an uncompressed APRS position report info field from
// dp: "!DDMM.mmN/DDDMM.mmWO/A=aaaaaa comment".
func EncodePosition(dp datapoint.DataPoint, comment string) (string, error) {
	if !dp.HasPosition() {
		return "", fmt.Errorf("aprs: cannot encode position: no fix")
	}
	lat := latString(dp.GPSLat)
	lon := lonString(dp.GPSLon)
	altFeet := int64(float64(dp.GPSAlt) * 3.28084)
	var b strings.Builder
	b.WriteByte(dataTypePosition)
	b.WriteString(lat)
	b.WriteByte(symTableBalloon)
	b.WriteString(lon)
	b.WriteByte(symCodeBalloon)
	fmt.Fprintf(&b, "/A=%06d", altFeet)
	if comment != "" {
		b.WriteByte(' ')
		b.WriteString(comment)
	}
	return b.String(), nil
}

// latString renders a 1e-7-degree latitude as APRS's DDMM.mmN/S.
func latString(lat1e7 int32) string {
	hemi := byte('N')
	v := lat1e7
	if v < 0 {
		hemi = 'S'
		v = -v
	}
	deg := v / 10_000_000
	frac := v % 10_000_000
	min := float64(frac) * 60 / 10_000_000
	return fmt.Sprintf("%02d%05.2f%c", deg, min, hemi)
}

// lonString renders a 1e-7-degree longitude as APRS's DDDMM.mmE/W.
func lonString(lon1e7 int32) string {
	hemi := byte('E')
	v := lon1e7
	if v < 0 {
		hemi = 'W'
		v = -v
	}
	deg := v / 10_000_000
	frac := v % 10_000_000
	min := float64(frac) * 60 / 10_000_000
	return fmt.Sprintf("%03d%05.2f%c", deg, min, hemi)
}
