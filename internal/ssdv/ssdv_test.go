package ssdv

import "testing"

func TestChunkSplitsIntoFixedSizePayloads(t *testing.T) {
	jpeg := make([]byte, PayloadSize*3+10)
	for i := range jpeg {
		jpeg[i] = byte(i)
	}
	frames, err := Chunk(jpeg, "KC1ABC", 1, 640, 480, 4)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(frames) != 4 {
		t.Fatalf("got %d frames, want 4", len(frames))
	}
	for i, f := range frames {
		if f.PacketID != uint16(i) {
			t.Fatalf("frame %d has PacketID %d", i, f.PacketID)
		}
		if f.ImageID != 1 || f.Callsign != "KC1ABC" {
			t.Fatalf("frame %d missing addressing fields: %+v", i, f)
		}
	}
	if frames[3].PayloadLen != 10 {
		t.Fatalf("last frame PayloadLen = %d, want 10", frames[3].PayloadLen)
	}
}

func TestChunkRejectsEmptyImage(t *testing.T) {
	if _, err := Chunk(nil, "KC1ABC", 1, 640, 480, 4); err == nil {
		t.Fatalf("expected error for empty image")
	}
}

func TestEncodeProducesFixedSizeFrame(t *testing.T) {
	frames, err := Chunk(make([]byte, 10), "KC1ABC", 1, 640, 480, 4)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	buf := Encode(frames[0])
	if len(buf) != FrameSize {
		t.Fatalf("Encode length = %d, want %d", len(buf), FrameSize)
	}
}

func TestFakeCameraReturnsConfiguredError(t *testing.T) {
	cam := &FakeCamera{Err: errTest}
	if _, err := cam.Capture(640, 480, 4); err != errTest {
		t.Fatalf("Capture: got %v, want errTest", err)
	}
}

var errTest = &captureErr{"boom"}

type captureErr struct{ msg string }

func (e *captureErr) Error() string { return e.msg }
