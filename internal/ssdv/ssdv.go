// Package ssdv implements the Image thread's (C7) JPEG-to-packet chunker.
// The spec's non-goals explicitly put "JPEG/SSDV codec internals ... beyond
// what the transmitter needs to chunk" out of scope: this package does not
// re-implement SSDV's FEC/Reed-Solomon coding or its image-detail packing,
// it only carries a captured JPEG's bytes across fixed-size radio packets
// with the addressing fields a ground-station SSDV decoder needs to
// reassemble them.
package ssdv

import "aprsballoon/internal/errs"

// FrameSize is the fixed on-air SSDV packet size (spec §6).
const FrameSize = 256

// PayloadSize is the image-data portion of one Frame, after the fixed
// 12-byte header fields, so that an encoded Frame is FrameSize bytes.
const PayloadSize = 244

// Frame is one 256-byte SSDV packet (spec §3's SSDVFrame, §6's wire format).
type Frame struct {
	Callsign   string
	ImageID    uint8
	PacketID   uint16
	MCUOffset  uint32
	Quality    uint8
	Width      uint16
	Height     uint16
	Payload    [PayloadSize]byte
	PayloadLen int // bytes of Payload actually carrying image data; the rest is zero padding
}

// Camera is the façade the Image thread captures JPEGs through. The
// spec treats the camera sensor and JPEG encoder as an external
// collaborator (§2 Non-goals); this interface is the contract point.
type Camera interface {
	Capture(width, height int, quality uint8) ([]byte, error)
}

// Chunk splits a captured JPEG's bytes into sequential Frames, one image id
// per call, following spec §4.7's Image thread description: "splits into
// 256-byte SSDV packets". mcuOffset is not computed from real SSDV MCU
// boundaries (that detail is explicitly out of scope); it simply tracks the
// cumulative payload byte offset, which is the information a receiver needs
// to know how far through the image each packet falls.
func Chunk(jpeg []byte, callsign string, imageID uint8, width, height int, quality uint8) ([]Frame, error) {
	if len(jpeg) == 0 {
		return nil, errs.ErrPacketTooLong
	}
	var frames []Frame
	var offset uint32
	for packetID := 0; ; packetID++ {
		start := packetID * PayloadSize
		if start >= len(jpeg) {
			break
		}
		end := start + PayloadSize
		if end > len(jpeg) {
			end = len(jpeg)
		}
		f := Frame{
			Callsign:  callsign,
			ImageID:   imageID,
			PacketID:  uint16(packetID),
			MCUOffset: offset,
			Quality:   quality,
			Width:     uint16(width),
			Height:    uint16(height),
		}
		n := copy(f.Payload[:], jpeg[start:end])
		f.PayloadLen = n
		offset += uint32(n)
		frames = append(frames, f)
	}
	if len(frames) > 0xFFFF {
		return nil, errs.ErrPacketTooLong
	}
	return frames, nil
}

// Encode packs one Frame into its 256-byte wire representation: a
// big-endian header (matching the rest of the repo's AX.25/APRS byte
// order) followed by the payload bytes.
func Encode(f Frame) []byte {
	buf := make([]byte, 0, FrameSize)
	buf = append(buf, f.ImageID)
	buf = append(buf, byte(f.PacketID>>8), byte(f.PacketID))
	buf = append(buf, byte(f.MCUOffset>>24), byte(f.MCUOffset>>16), byte(f.MCUOffset>>8), byte(f.MCUOffset))
	buf = append(buf, f.Quality)
	buf = append(buf, byte(f.Width>>8), byte(f.Width))
	buf = append(buf, byte(f.Height>>8), byte(f.Height))
	buf = append(buf, f.Payload[:]...)
	return buf
}
