// Package ax25 implements AX.25 UI frame encoding/decoding, HDLC bit
// stuffing/destuffing, the frame check sequence, and the two physical-layer
// line codes the tracker's two modulations need (NRZI for AFSK1200, the G3RUH
// scrambler for FSK9600). The field-by-field address encoding mirrors the
// bit-position constants and length-checked decode idiom goblimey's
// rtcm/type1005 package uses for its own fixed-layout binary message (shift
// each field out by its declared width, sanity-check as you go).
package ax25

import (
	"fmt"
	"strconv"
	"strings"

	"aprsballoon/internal/errs"
)

// Callsign is a parsed AX.25 station address: up to 6 characters plus an SSID
// (0-15) and the H-bit (has-been-repeated, for digipeater path entries).
type Callsign struct {
	Call string // up to 6 upper-case alphanumeric characters, no padding
	SSID byte   // 0-15
	H    bool   // has-been-repeated / command-response bit, context dependent
}

// String renders the callsign in the conventional CALL-SSID form, e.g.
// "DL7AD-12", omitting "-0" for SSID zero.
func (c Callsign) String() string {
	if c.SSID == 0 {
		return c.Call
	}
	return fmt.Sprintf("%s-%d", c.Call, c.SSID)
}

// ParseCallsign parses "CALL" or "CALL-SSID" into a Callsign.
func ParseCallsign(s string) (Callsign, error) {
	call := s
	ssid := byte(0)
	if i := strings.IndexByte(s, '-'); i >= 0 {
		call = s[:i]
		n, err := strconv.Atoi(s[i+1:])
		if err != nil || n < 0 || n > 15 {
			return Callsign{}, fmt.Errorf("ax25: invalid SSID in %q: %w", s, errs.ErrConfigInvalid)
		}
		ssid = byte(n)
	}
	call = strings.ToUpper(call)
	if len(call) == 0 || len(call) > 6 {
		return Callsign{}, fmt.Errorf("ax25: invalid call %q: %w", s, errs.ErrConfigInvalid)
	}
	return Callsign{Call: call, SSID: ssid}, nil
}

// encodeAddr packs one address field (7 bytes: 6 shifted-ASCII call chars
// padded with spaces, plus the SSID/H/reserved/extension byte). last is true
// for the final address field in the path (clears the AX.25 extension bit).
func encodeAddr(c Callsign, last bool, cr bool) [7]byte {
	var out [7]byte
	call := c.Call
	for i := 0; i < 6; i++ {
		ch := byte(' ')
		if i < len(call) {
			ch = call[i]
		}
		out[i] = ch << 1
	}
	b := byte(0x60) | (c.SSID << 1) // reserved bits 0b01100000 per AX.25 2.0
	if c.H {
		b |= 0x80
	}
	if cr {
		b |= 0x40 // command/response bit, only meaningful on the dest/src pair
	}
	if !last {
		b &^= 0x01 // extension bit clear: more addresses follow
	} else {
		b |= 0x01 // extension bit set: last address field
	}
	out[6] = b
	return out
}

// decodeAddr unpacks one 7-byte address field, returning the parsed Callsign
// and whether this was the last address field (extension bit set).
func decodeAddr(b []byte) (Callsign, bool, error) {
	if len(b) < 7 {
		return Callsign{}, false, fmt.Errorf("ax25: short address field: %w", errs.ErrFrameCorrupt)
	}
	var sb strings.Builder
	for i := 0; i < 6; i++ {
		ch := b[i] >> 1
		if ch != ' ' {
			sb.WriteByte(ch)
		}
	}
	ssidByte := b[6]
	c := Callsign{
		Call: sb.String(),
		SSID: (ssidByte >> 1) & 0x0f,
		H:    ssidByte&0x80 != 0,
	}
	last := ssidByte&0x01 != 0
	return c, last, nil
}

// Path is a digipeater path: dest, src, then up to 8 repeater entries (spec
// §3's "digi path (<=8 entries, each with H-bit)").
type Path struct {
	Dest Callsign
	Src  Callsign
	Digis []Callsign
}

const maxDigis = 8

// encode serializes the address field (dest, src, digis...) with the
// extension bit set only on the final entry.
func (p Path) encode() ([]byte, error) {
	if len(p.Digis) > maxDigis {
		return nil, fmt.Errorf("ax25: %d digis exceeds max %d: %w", len(p.Digis), maxDigis, errs.ErrFrameCorrupt)
	}
	out := make([]byte, 0, 7*(2+len(p.Digis)))
	a := encodeAddr(p.Dest, false, true)
	out = append(out, a[:]...)
	last := len(p.Digis) == 0
	a = encodeAddr(p.Src, last, false)
	out = append(out, a[:]...)
	for i, d := range p.Digis {
		a = encodeAddr(d, i == len(p.Digis)-1, false)
		out = append(out, a[:]...)
	}
	return out, nil
}

// decodePath parses the address field off the front of buf, returning the
// Path and the number of bytes consumed.
func decodePath(buf []byte) (Path, int, error) {
	if len(buf) < 14 {
		return Path{}, 0, fmt.Errorf("ax25: address field too short: %w", errs.ErrFrameCorrupt)
	}
	dest, last, err := decodeAddr(buf[0:7])
	if err != nil {
		return Path{}, 0, err
	}
	if last {
		return Path{}, 0, fmt.Errorf("ax25: dest address has extension bit set: %w", errs.ErrFrameCorrupt)
	}
	src, last, err := decodeAddr(buf[7:14])
	if err != nil {
		return Path{}, 0, err
	}
	pos := 14
	var digis []Callsign
	for !last {
		if pos+7 > len(buf) {
			return Path{}, 0, fmt.Errorf("ax25: truncated digi path: %w", errs.ErrFrameCorrupt)
		}
		if len(digis) >= maxDigis {
			return Path{}, 0, fmt.Errorf("ax25: more than %d digis: %w", maxDigis, errs.ErrFrameCorrupt)
		}
		var d Callsign
		d, last, err = decodeAddr(buf[pos : pos+7])
		if err != nil {
			return Path{}, 0, err
		}
		digis = append(digis, d)
		pos += 7
	}
	return Path{Dest: dest, Src: src, Digis: digis}, pos, nil
}

// NextUnusedDigi returns the index of the first digi entry whose H-bit is not
// yet set, or -1 if all have been repeated (or there are none). aprs.Digipeat,
// run by the Dispatcher thread, uses this to decide whether, and where, to set
// its own H-bit before retransmitting (spec §4.4's WIDEn-N semantics).
func (p Path) NextUnusedDigi() int {
	for i, d := range p.Digis {
		if !d.H {
			return i
		}
	}
	return -1
}
